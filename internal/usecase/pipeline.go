package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/services/ensemble"
	"TradePulse/internal/services/features"
	"TradePulse/internal/services/regime"
	"TradePulse/internal/services/risk"
	"TradePulse/internal/services/signal"
	"TradePulse/internal/services/window"
	applogger "TradePulse/pkg/logger"
)

var (
	// ErrDataUnavailable means the cycle had no usable bar.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientWindow means the window cannot yield a full lookback of rows yet.
	ErrInsufficientWindow = errors.New("insufficient window")
)

// Pipeline runs one decision cycle per tick:
// window -> features -> regime -> ensemble -> signal -> risk -> publish.
type Pipeline struct {
	window     *window.Store
	engine     *features.Engine
	classifier *regime.Classifier
	ensemble   *ensemble.Aggregator
	generator  *signal.Generator
	risk       *risk.Manager
	sink       domrepo.ResultSink
	metrics    domrepo.Metrics
	log        *applogger.Logger

	newID func() string
	now   func() time.Time

	cycle  sync.Mutex
	mu     sync.RWMutex
	latest *models.CycleReport
}

func NewPipeline(
	w *window.Store,
	e *features.Engine,
	c *regime.Classifier,
	a *ensemble.Aggregator,
	g *signal.Generator,
	r *risk.Manager,
	sink domrepo.ResultSink,
	m domrepo.Metrics,
	l *applogger.Logger,
) *Pipeline {
	return &Pipeline{
		window:     w,
		engine:     e,
		classifier: c,
		ensemble:   a,
		generator:  g,
		risk:       r,
		sink:       sink,
		metrics:    m,
		log:        l.With(applogger.String("component", "pipeline")),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Warmup loads historical bars into the window without running a cycle.
func (p *Pipeline) Warmup(bars []models.Bar) int {
	p.cycle.Lock()
	defer p.cycle.Unlock()
	rejected := p.window.AddAll(bars)
	if rejected > 0 {
		p.log.Warn("rejected bars during warm-up",
			applogger.String("stage", "window"), applogger.Int("rejected", rejected))
	}
	if last, ok := p.window.Latest(); ok {
		p.metrics.RecordLastPrice(last.Close)
	}
	p.log.Info("window warmed up",
		applogger.String("stage", "window"),
		applogger.Int("bars", p.window.Len()),
		applogger.Int("need", p.engine.MinBars()),
	)
	return len(bars) - rejected
}

// Step runs one cycle for bar. A nil bar skips the cycle. The returned report
// is never mutated afterwards.
func (p *Pipeline) Step(ctx context.Context, bar *models.Bar) *models.CycleReport {
	p.cycle.Lock()
	defer p.cycle.Unlock()

	start := time.Now()
	rep := &models.CycleReport{ID: p.newID(), Timestamp: p.now().UTC()}
	err := p.run(ctx, bar, rep)
	switch {
	case err == nil:
	case errors.Is(err, ErrDataUnavailable), errors.Is(err, ErrInsufficientWindow):
		rep.Outcome, rep.Reason = models.OutcomeSkipped, err.Error()
		p.metrics.RecordSkip(reasonOf(err))
		p.log.Warn("cycle skipped",
			applogger.String("stage", "pipeline"),
			applogger.String("id", rep.ID),
			applogger.String("reason", reasonOf(err)),
			applogger.Error(err),
		)
	default:
		rep.Outcome, rep.Reason = models.OutcomeAborted, err.Error()
		p.metrics.RecordSkip(reasonOf(err))
		p.metrics.RecordError(reasonOf(err))
		p.log.Error("cycle aborted",
			applogger.String("stage", "pipeline"),
			applogger.String("id", rep.ID),
			applogger.String("reason", reasonOf(err)),
			applogger.Error(err),
		)
	}
	p.metrics.RecordCycle(string(rep.Outcome))
	p.metrics.RecordLatency("cycle", time.Since(start).Seconds())

	p.mu.Lock()
	p.latest = rep
	p.mu.Unlock()
	return rep
}

func (p *Pipeline) run(ctx context.Context, bar *models.Bar, rep *models.CycleReport) error {
	if bar == nil {
		return fmt.Errorf("%w: no bar from source", ErrDataUnavailable)
	}
	rep.BarTime = bar.Time.UTC()
	if err := p.window.Add(*bar); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	rep.WindowSize = p.window.Len()
	rep.CurrentPrice = bar.Close
	p.metrics.RecordLastPrice(bar.Close)
	if need := p.engine.MinBars(); rep.WindowSize < need {
		return fmt.Errorf("%w: %d of %d bars", ErrInsufficientWindow, rep.WindowSize, need)
	}

	t := time.Now()
	frame, err := p.engine.Compute(p.window.Snapshot())
	p.metrics.RecordLatency("features", time.Since(t).Seconds())
	if err != nil {
		return err
	}
	rep.FeatureRows = frame.Len()
	if frame.Len() < p.engine.Lookback() {
		return fmt.Errorf("%w: %d of %d feature rows", ErrInsufficientWindow, frame.Len(), p.engine.Lookback())
	}
	rep.CurrentPrice = frame.Last().Close

	an := p.classifier.Analyze(frame)
	rep.Regime, rep.Volatility, rep.TrendStrength = an.Regime, an.Volatility, an.TrendStrength
	p.metrics.RecordRegime(an.Regime.ID())
	p.log.Debug("regime classified",
		applogger.String("stage", "regime"),
		applogger.String("regime", an.Regime.String()),
		applogger.Float("volatility", an.Volatility),
		applogger.Float("trend_strength", an.TrendStrength),
	)

	t = time.Now()
	fc, err := p.ensemble.Predict(ctx, frame, an.Regime)
	p.metrics.RecordLatency("ensemble", time.Since(t).Seconds())
	if err != nil {
		return err
	}
	rep.Predictions, rep.PredictedPrice = fc.Predictions, fc.Price
	rep.Degradations = append(rep.Degradations, fc.Degradations...)
	p.metrics.RecordPredictedPrice(fc.Price)

	d := p.generator.Generate(fc.Price, frame, an.Regime)
	rep.PrimitiveSignal, rep.RegimeSignal, rep.GeneratedSignal = d.Primitive, d.AfterRegime, d.Final
	p.metrics.RecordSignal("primitive", d.Primitive.String())
	p.metrics.RecordSignal("generated", d.Final.String())

	v := p.risk.Filter(d.Final, frame)
	rep.FinalSignal, rep.StopPct, rep.PositionSize, rep.RiskReason = v.Signal, v.StopPct, v.PositionSize, v.Reason
	p.metrics.RecordSignal("final", v.Signal.String())
	rep.Outcome = models.OutcomePublished

	p.log.Info("decision",
		applogger.String("stage", "decision"),
		applogger.String("id", rep.ID),
		applogger.Float("current_price", rep.CurrentPrice),
		applogger.Float("predicted_price", rep.PredictedPrice),
		applogger.String("regime", rep.Regime.String()),
		applogger.String("primitive", rep.PrimitiveSignal.String()),
		applogger.String("final", rep.FinalSignal.String()),
	)

	if p.sink != nil {
		t = time.Now()
		if err := p.sink.Publish(ctx, rep); err != nil {
			p.metrics.RecordError("publish")
			p.log.Warn("publish failed, result dropped",
				applogger.String("stage", "publish"), applogger.String("id", rep.ID), applogger.Error(err))
		}
		p.metrics.RecordLatency("publish", time.Since(t).Seconds())
	}
	return nil
}

// Latest returns the most recent cycle report, or nil before the first cycle.
func (p *Pipeline) Latest() *models.CycleReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// SetLatest seeds the latest report, e.g. from a state cache after restart.
func (p *Pipeline) SetLatest(r *models.CycleReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		p.latest = r
	}
}

// RiskHistory returns the accepted-signal history owned by the risk stage.
func (p *Pipeline) RiskHistory() []models.Signal { return p.risk.History() }

// RestoreRiskHistory seeds the risk history from a snapshot.
func (p *Pipeline) RestoreRiskHistory(h []models.Signal) { p.risk.Restore(h) }

// MinBars is the window length needed before cycles can publish.
func (p *Pipeline) MinBars() int { return p.engine.MinBars() }

func reasonOf(err error) string {
	switch {
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrInsufficientWindow):
		return "insufficient_window"
	case errors.Is(err, features.ErrFeatureComputation):
		return "feature_computation"
	case errors.Is(err, ensemble.ErrModelInput):
		return "model_input"
	case errors.Is(err, ensemble.ErrAllPredictorsFailed):
		return "all_predictors_failed"
	default:
		return "unknown"
	}
}
