package regime

import (
	"math"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/services/features"
)

const (
	minRows     = 20
	volWindow   = 20
	fallbackVol = 0.01
)

// Thresholds for regime selection.
type Thresholds struct {
	HighVolatility float64
	LowVolatility  float64
	Trend          float64
}

// DefaultThresholds match the trained strategy set.
func DefaultThresholds() Thresholds {
	return Thresholds{HighVolatility: 0.02, LowVolatility: 0.005, Trend: 0.001}
}

// Analysis is the classifier output kept for logs and the API.
type Analysis struct {
	Regime        models.Regime `json:"regime"`
	Volatility    float64       `json:"volatility"`
	TrendStrength float64       `json:"trend_strength"`
	Rows          int           `json:"rows"`
}

// Classifier maps recent feature statistics to a market regime.
type Classifier struct {
	th Thresholds
}

func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th}
}

// Analyze always returns one of the four regimes. Short frames default to
// trend following.
func (c *Classifier) Analyze(frame *features.Frame) Analysis {
	n := frame.Len()
	if n < minRows {
		return Analysis{Regime: models.RegimeTrendFollowing, Rows: n}
	}
	vol := volatility(frame)
	trend := trendStrength(frame)
	return Analysis{
		Regime:        c.decide(vol, trend),
		Volatility:    vol,
		TrendStrength: trend,
		Rows:          n,
	}
}

// decide applies the thresholds in priority order, first match wins.
func (c *Classifier) decide(vol, trend float64) models.Regime {
	switch {
	case vol > c.th.HighVolatility:
		return models.RegimeHighVolatility
	case vol < c.th.LowVolatility:
		return models.RegimeLowVolatility
	case trend > c.th.Trend:
		return models.RegimeTrendFollowing
	default:
		return models.RegimeSideways
	}
}

func volatility(frame *features.Frame) float64 {
	series, ok := frame.Column(features.FLogRet)
	if !ok {
		series = features.PctChange(frame.Closes())
	}
	v := features.SampleStd(tail(series, volWindow))
	if math.IsNaN(v) {
		return fallbackVol
	}
	return v
}

func trendStrength(frame *features.Frame) float64 {
	var slope float64
	if col, ok := frame.Column(features.FCloseSlope60); ok {
		slope = col[len(col)-1]
	} else {
		slope = features.Slope(tail(frame.Closes(), volWindow))
	}
	if math.IsNaN(slope) {
		return 0
	}
	return math.Abs(slope)
}

func tail(x []float64, n int) []float64 {
	if len(x) <= n {
		return x
	}
	return x[len(x)-n:]
}
