package ensemble

import (
	"fmt"

	"TradePulse/internal/domain/models"
)

// Model names of the trained set.
const (
	ModelLSTM            = "lstm"
	ModelCNNLSTM         = "cnn_lstm"
	ModelTransformerLSTM = "transformer_lstm"
	ModelAttentionGRU    = "attention_gru"
	ModelStackedLSTM     = "stacked_lstm"
)

// WeightTable holds per-model weights for every regime, indexed by Regime.Index.
type WeightTable [models.RegimeCount]map[string]float64

// DefaultWeights is the weighting the models were tuned with.
func DefaultWeights() WeightTable {
	return WeightTable{
		{ModelLSTM: 0.40, ModelCNNLSTM: 0.35, ModelTransformerLSTM: 0.25, ModelAttentionGRU: 0, ModelStackedLSTM: 0},
		{ModelLSTM: 0, ModelCNNLSTM: 0, ModelTransformerLSTM: 0, ModelAttentionGRU: 0.60, ModelStackedLSTM: 0},
		{ModelLSTM: 0, ModelCNNLSTM: 0.55, ModelTransformerLSTM: 0.45, ModelAttentionGRU: 0, ModelStackedLSTM: 0},
		{ModelLSTM: 0.45, ModelCNNLSTM: 0, ModelTransformerLSTM: 0, ModelAttentionGRU: 0.25, ModelStackedLSTM: 0.30},
	}
}

// WeightsFromConfig builds a table from regime-name keyed weights.
// Every regime must be present and only known models may be named.
func WeightsFromConfig(byRegime map[string]map[string]float64, modelNames []string) (WeightTable, error) {
	var wt WeightTable
	known := make(map[string]bool, len(modelNames))
	for _, m := range modelNames {
		known[m] = true
	}
	seen := make(map[models.Regime]bool)
	for key, weights := range byRegime {
		r, err := models.ParseRegime(key)
		if err != nil {
			return wt, err
		}
		if seen[r] {
			return wt, fmt.Errorf("duplicate weights for regime %s", r)
		}
		seen[r] = true
		m := make(map[string]float64, len(weights))
		for name, w := range weights {
			if !known[name] {
				return wt, fmt.Errorf("regime %s: unknown model %q", r, name)
			}
			if w < 0 {
				return wt, fmt.Errorf("regime %s: negative weight for %q", r, name)
			}
			m[name] = w
		}
		wt[r.Index()] = m
	}
	for _, r := range models.AllRegimes() {
		if !seen[r] {
			return wt, fmt.Errorf("missing weights for regime %s", r)
		}
	}
	return wt, nil
}

// For returns the weights of regime r. Invalid regimes resolve to trend following.
func (wt WeightTable) For(r models.Regime) map[string]float64 {
	if !r.Valid() {
		r = models.RegimeTrendFollowing
	}
	return wt[r.Index()]
}
