package ensemble

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/services/features"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
)

type fakePredictor struct {
	name string
	val  float64
	err  error
	got  [][]float64
}

func (f *fakePredictor) Name() string { return f.name }

func (f *fakePredictor) Predict(_ context.Context, w [][]float64) (float64, error) {
	f.got = w
	return f.val, f.err
}

// identityScaler passes values through, optionally failing the inverse step.
type identityScaler struct {
	inverseErr error
	forwardErr error
}

func (s identityScaler) TransformFeatures(_ context.Context, rows [][]float64) ([][]float64, error) {
	return rows, s.forwardErr
}

func (s identityScaler) InverseTransformPrediction(_ context.Context, v float64) (float64, error) {
	if s.inverseErr != nil {
		return 0, s.inverseErr
	}
	return v * 100, nil
}

func frameOf(n int) *features.Frame {
	rows := make([]features.Row, n)
	for i := range rows {
		rows[i] = features.Row{Close: 100 + float64(i)}
	}
	return features.NewFrame(rows)
}

func newAgg(preds []domsvc.Predictor, sc domsvc.Scaler, wt WeightTable) *Aggregator {
	return NewAggregator(preds, sc, wt, features.DefaultFeatures, 5, logger.Nop(), metrics.Nop{})
}

func fiveModels(vals map[string]float64) []domsvc.Predictor {
	names := []string{ModelLSTM, ModelCNNLSTM, ModelTransformerLSTM, ModelAttentionGRU, ModelStackedLSTM}
	out := make([]domsvc.Predictor, len(names))
	for i, n := range names {
		out[i] = &fakePredictor{name: n, val: vals[n]}
	}
	return out
}

func TestPredictWeightedByRegime(t *testing.T) {
	preds := fiveModels(map[string]float64{
		ModelLSTM: 1.0, ModelCNNLSTM: 2.0, ModelTransformerLSTM: 3.0, ModelAttentionGRU: 4.0, ModelStackedLSTM: 5.0,
	})
	a := newAgg(preds, identityScaler{}, DefaultWeights())

	fc, err := a.Predict(context.Background(), frameOf(8), models.RegimeTrendFollowing)
	require.NoError(t, err)
	want := (0.40*1 + 0.35*2 + 0.25*3) / 1.0
	assert.InDelta(t, want, fc.Scaled, 1e-12)
	assert.InDelta(t, want*100, fc.Price, 1e-9)
	assert.True(t, fc.Weighted)
	assert.Len(t, fc.Predictions, 5)

	fc, err = a.Predict(context.Background(), frameOf(8), models.RegimeSideways)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, fc.Scaled, 1e-12)

	// The tensor is the newest lookback rows by the full feature list.
	got := preds[0].(*fakePredictor).got
	require.Len(t, got, 5)
	assert.Len(t, got[0], 21)
	assert.Equal(t, 107.0, got[4][0])
}

func TestPredictZeroWeightsFallBackToMean(t *testing.T) {
	var wt WeightTable
	for i := range wt {
		wt[i] = map[string]float64{}
	}
	preds := fiveModels(map[string]float64{
		ModelLSTM: 1, ModelCNNLSTM: 2, ModelTransformerLSTM: 3, ModelAttentionGRU: 4, ModelStackedLSTM: 5,
	})
	fc, err := newAgg(preds, identityScaler{}, wt).Predict(context.Background(), frameOf(5), models.RegimeHighVolatility)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, fc.Scaled, 1e-12)
	assert.False(t, fc.Weighted)
}

func TestPredictFailedModelCountsAsZero(t *testing.T) {
	preds := fiveModels(map[string]float64{ModelCNNLSTM: 2.0, ModelTransformerLSTM: 2.0})
	preds[1].(*fakePredictor).err = errors.New("timeout")

	fc, err := newAgg(preds, identityScaler{}, DefaultWeights()).Predict(context.Background(), frameOf(5), models.RegimeHighVolatility)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fc.Predictions[ModelCNNLSTM])
	assert.Equal(t, []string{ModelCNNLSTM}, fc.Failed)
	assert.InDelta(t, 0.45*2.0, fc.Scaled, 1e-12)
	assert.Contains(t, fc.Degradations, "predictor_failed:cnn_lstm")
}

func TestPredictNaNIsFailure(t *testing.T) {
	preds := fiveModels(map[string]float64{ModelLSTM: 1})
	preds[0].(*fakePredictor).val = math.NaN()
	fc, err := newAgg(preds, identityScaler{}, DefaultWeights()).Predict(context.Background(), frameOf(5), models.RegimeTrendFollowing)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fc.Predictions[ModelLSTM])
	assert.Contains(t, fc.Failed, ModelLSTM)
}

func TestPredictAllFailed(t *testing.T) {
	preds := fiveModels(nil)
	for _, p := range preds {
		p.(*fakePredictor).err = errors.New("down")
	}
	_, err := newAgg(preds, identityScaler{}, DefaultWeights()).Predict(context.Background(), frameOf(5), models.RegimeTrendFollowing)
	assert.ErrorIs(t, err, ErrAllPredictorsFailed)
}

func TestPredictInputErrors(t *testing.T) {
	a := newAgg(fiveModels(nil), identityScaler{}, DefaultWeights())
	_, err := a.Predict(context.Background(), frameOf(4), models.RegimeTrendFollowing)
	assert.ErrorIs(t, err, ErrModelInput)

	a = newAgg(fiveModels(nil), identityScaler{forwardErr: errors.New("bad shape")}, DefaultWeights())
	_, err = a.Predict(context.Background(), frameOf(5), models.RegimeTrendFollowing)
	assert.ErrorIs(t, err, ErrModelInput)
}

func TestPredictInverseFailureIsDegraded(t *testing.T) {
	preds := fiveModels(map[string]float64{ModelAttentionGRU: 0.7})
	a := newAgg(preds, identityScaler{inverseErr: errors.New("no scaler")}, DefaultWeights())
	fc, err := a.Predict(context.Background(), frameOf(5), models.RegimeSideways)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, fc.Price, 1e-12)
	assert.Contains(t, fc.Degradations, "inverse_scale_failed")
}

func TestWeightsFromConfig(t *testing.T) {
	names := []string{ModelLSTM, ModelAttentionGRU}
	cfg := map[string]map[string]float64{
		"trend_following": {ModelLSTM: 1},
		"sideways":        {ModelAttentionGRU: 1},
		"high_volatility": {ModelLSTM: 0.5, ModelAttentionGRU: 0.5},
		"4":               {},
	}
	wt, err := WeightsFromConfig(cfg, names)
	require.NoError(t, err)
	assert.Equal(t, 1.0, wt.For(models.RegimeSideways)[ModelAttentionGRU])
	assert.Empty(t, wt.For(models.RegimeLowVolatility))

	delete(cfg, "4")
	_, err = WeightsFromConfig(cfg, names)
	assert.Error(t, err)

	cfg["low_volatility"] = map[string]float64{"gru": 1}
	_, err = WeightsFromConfig(cfg, names)
	assert.Error(t, err)
}

func TestCombineIsOrderStable(t *testing.T) {
	names := []string{ModelLSTM, ModelCNNLSTM, ModelTransformerLSTM, ModelAttentionGRU, ModelStackedLSTM}
	preds := map[string]float64{
		ModelLSTM: 0.1234567891, ModelCNNLSTM: 0.7000000001, ModelTransformerLSTM: 0.3333333333,
		ModelAttentionGRU: 0.9876543219, ModelStackedLSTM: 0.5555555557,
	}
	weights := map[string]float64{
		ModelLSTM: 0.3, ModelCNNLSTM: 0.1, ModelTransformerLSTM: 0.35, ModelAttentionGRU: 0.15, ModelStackedLSTM: 0.1,
	}

	wantSum, wantTotal, plain := 0.0, 0.0, 0.0
	for _, n := range names {
		wantSum += weights[n] * preds[n]
		wantTotal += weights[n]
		plain += preds[n]
	}
	want := wantSum / wantTotal
	wantMean := plain / float64(len(names))

	for i := 0; i < 2000; i++ {
		got, weighted := combine(names, preds, weights)
		require.True(t, weighted)
		require.Equal(t, math.Float64bits(want), math.Float64bits(got))

		got, weighted = combine(names, preds, nil)
		require.False(t, weighted)
		require.Equal(t, math.Float64bits(wantMean), math.Float64bits(got))
	}
}

func TestPredictIsRepeatable(t *testing.T) {
	preds := fiveModels(map[string]float64{
		ModelLSTM: 0.1234567891, ModelCNNLSTM: 0.7000000001, ModelTransformerLSTM: 0.3333333333,
		ModelAttentionGRU: 0.9876543219, ModelStackedLSTM: 0.5555555557,
	})
	agg := newAgg(preds, identityScaler{}, DefaultWeights())
	first, err := agg.Predict(context.Background(), frameOf(5), models.RegimeTrendFollowing)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		fc, err := agg.Predict(context.Background(), frameOf(5), models.RegimeTrendFollowing)
		require.NoError(t, err)
		require.Equal(t, math.Float64bits(first.Scaled), math.Float64bits(fc.Scaled))
	}
}
