package models

import "time"

// Outcome describes how a decision cycle ended.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeAborted   Outcome = "aborted"
)

// PredictionResult is the payload handed to result sinks.
type PredictionResult struct {
	ID             string  `json:"id"`
	PredictedPrice float64 `json:"predictedPrice"`
	Timestamp      int64   `json:"timestamp"`
	RegimeID       int     `json:"regimeId"`
	Signal         Signal  `json:"signal"`
}

// CycleReport is the immutable record of one pipeline cycle.
type CycleReport struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	BarTime   time.Time `json:"bar_time"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`

	WindowSize    int     `json:"window_size"`
	FeatureRows   int     `json:"feature_rows"`
	CurrentPrice  float64 `json:"current_price"`
	Regime        Regime  `json:"regime,omitempty"`
	Volatility    float64 `json:"volatility"`
	TrendStrength float64 `json:"trend_strength"`

	Predictions    map[string]float64 `json:"predictions,omitempty"`
	PredictedPrice float64            `json:"predicted_price"`

	PrimitiveSignal Signal `json:"primitive_signal,omitempty"`
	RegimeSignal    Signal `json:"regime_signal,omitempty"`
	GeneratedSignal Signal `json:"generated_signal,omitempty"`
	FinalSignal     Signal `json:"final_signal,omitempty"`

	StopPct      float64 `json:"stop_pct,omitempty"`
	PositionSize float64 `json:"position_size,omitempty"`
	RiskReason   string  `json:"risk_reason,omitempty"`

	Degradations []string `json:"degradations,omitempty"`
}

// Result converts a published report into the sink payload.
func (r *CycleReport) Result() PredictionResult {
	return PredictionResult{
		ID:             r.ID,
		PredictedPrice: r.PredictedPrice,
		Timestamp:      r.BarTime.Unix(),
		RegimeID:       r.Regime.ID(),
		Signal:         r.FinalSignal,
	}
}
