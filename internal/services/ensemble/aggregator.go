package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/services/features"
	"TradePulse/pkg/logger"
)

var (
	// ErrModelInput is returned when the model tensor cannot be built.
	ErrModelInput = errors.New("model input unavailable")
	// ErrAllPredictorsFailed is returned when no predictor produced a value.
	ErrAllPredictorsFailed = errors.New("all predictors failed")
)

// Forecast is the aggregated prediction for one cycle.
type Forecast struct {
	Price        float64
	Scaled       float64
	Predictions  map[string]float64
	Failed       []string
	Weighted     bool
	Degradations []string
}

// Aggregator combines per-model predictions with regime weights.
type Aggregator struct {
	predictors []domsvc.Predictor
	scaler     domsvc.Scaler
	weights    WeightTable
	features   []string
	lookback   int
	log        *logger.Logger
	metrics    repository.Metrics
}

// NewAggregator wires the predictor set. features is the ordered column list
// fed to the scaler and the models.
func NewAggregator(predictors []domsvc.Predictor, scaler domsvc.Scaler, weights WeightTable,
	featureNames []string, lookback int, log *logger.Logger, m repository.Metrics) *Aggregator {
	return &Aggregator{
		predictors: predictors,
		scaler:     scaler,
		weights:    weights,
		features:   append([]string(nil), featureNames...),
		lookback:   lookback,
		log:        log,
		metrics:    m,
	}
}

// ModelNames lists the configured predictors.
func (a *Aggregator) ModelNames() []string {
	out := make([]string, len(a.predictors))
	for i, p := range a.predictors {
		out[i] = p.Name()
	}
	return out
}

// Predict scales the newest lookback rows, queries every predictor in parallel
// and returns the regime-weighted forecast in price units.
func (a *Aggregator) Predict(ctx context.Context, frame *features.Frame, r models.Regime) (*Forecast, error) {
	if frame.Len() < a.lookback {
		return nil, fmt.Errorf("%w: need %d feature rows, have %d", ErrModelInput, a.lookback, frame.Len())
	}
	raw, err := frame.Matrix(a.features, a.lookback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelInput, err)
	}
	scaled, err := a.scaler.TransformFeatures(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: scale features: %v", ErrModelInput, err)
	}

	preds, failed := a.collect(ctx, scaled)
	if len(failed) == len(a.predictors) {
		return nil, ErrAllPredictorsFailed
	}

	value, weighted := combine(a.ModelNames(), preds, a.weights.For(r))
	fc := &Forecast{Scaled: value, Predictions: preds, Failed: failed, Weighted: weighted}

	price, err := a.scaler.InverseTransformPrediction(ctx, value)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		if err == nil {
			err = fmt.Errorf("non-finite inverse %v", price)
		}
		a.log.Warn("inverse scaling failed, using scaled prediction",
			logger.String("stage", "ensemble"), logger.Error(err))
		a.metrics.RecordError("inverse_scale")
		fc.Price = value
		fc.Degradations = append(fc.Degradations, "inverse_scale_failed")
	} else {
		fc.Price = price
	}
	if len(failed) > 0 {
		fc.Degradations = append(fc.Degradations, "predictor_failed:"+strings.Join(failed, ","))
	}
	return fc, nil
}

func (a *Aggregator) collect(ctx context.Context, window [][]float64) (map[string]float64, []string) {
	preds := make(map[string]float64, len(a.predictors))
	var failed []string
	var mu sync.Mutex
	var eg errgroup.Group

	for _, p := range a.predictors {
		p := p
		eg.Go(func() error {
			start := time.Now()
			v, err := p.Predict(ctx, window)
			a.metrics.RecordLatency("predict_"+p.Name(), time.Since(start).Seconds())
			if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
				err = fmt.Errorf("non-finite prediction %v", v)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.Error("predictor failed",
					logger.String("stage", "ensemble"), logger.String("model", p.Name()), logger.Error(err))
				a.metrics.RecordPredictorError(p.Name())
				preds[p.Name()] = 0
				failed = append(failed, p.Name())
				return nil
			}
			preds[p.Name()] = v
			return nil
		})
	}
	_ = eg.Wait()
	sort.Strings(failed)
	return preds, failed
}

// combine takes the weighted mean over models with positive weight. When no
// weight applies it falls back to the plain mean of every prediction. Sums run
// in names order so the result does not depend on map iteration.
func combine(names []string, preds map[string]float64, weights map[string]float64) (float64, bool) {
	sum, total := 0.0, 0.0
	for _, name := range names {
		v, ok := preds[name]
		w := weights[name]
		if !ok || w <= 0 {
			continue
		}
		sum += w * v
		total += w
	}
	if total > 0 {
		return sum / total, true
	}
	n := 0
	for _, name := range names {
		if v, ok := preds[name]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), false
}
