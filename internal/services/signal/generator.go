package signal

import (
	"TradePulse/internal/domain/models"
	"TradePulse/internal/services/features"
)

// Params tune signal generation and filtering.
type Params struct {
	MinMove            float64
	ATRSpikeMultiplier float64
	RSIOverbought      float64
	RSIOversold        float64
	VolumeRatio        float64
	VolumeWindow       int
}

func DefaultParams() Params {
	return Params{
		MinMove:            0.002,
		ATRSpikeMultiplier: 1.5,
		RSIOverbought:      70,
		RSIOversold:        30,
		VolumeRatio:        0.5,
		VolumeWindow:       20,
	}
}

// Decision carries the signal after each filtering step.
type Decision struct {
	CurrentPrice   float64       `json:"current_price"`
	PredictedPrice float64       `json:"predicted_price"`
	Change         float64       `json:"change"`
	Primitive      models.Signal `json:"primitive"`
	AfterRegime    models.Signal `json:"after_regime"`
	Final          models.Signal `json:"final"`
}

// Generator turns a forecast into a filtered signal. Filters only ever
// downgrade to hold.
type Generator struct {
	p Params
}

func NewGenerator(p Params) *Generator {
	return &Generator{p: p}
}

// Generate runs primitive, regime and technical steps in that order.
func (g *Generator) Generate(predicted float64, frame *features.Frame, r models.Regime) Decision {
	d := Decision{PredictedPrice: predicted, Primitive: models.SignalHold, AfterRegime: models.SignalHold, Final: models.SignalHold}
	if frame.Len() == 0 {
		return d
	}
	cur := frame.Last().Close
	d.CurrentPrice = cur
	if cur <= 0 {
		return d
	}
	d.Change = (predicted - cur) / cur
	d.Primitive = g.primitive(d.Change)
	d.AfterRegime = g.regimeFilter(d.Primitive, frame, r)
	d.Final = g.technicalFilter(d.AfterRegime, frame)
	return d
}

func (g *Generator) primitive(change float64) models.Signal {
	switch {
	case change > g.p.MinMove:
		return models.SignalBuy
	case change < -g.p.MinMove:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}

func (g *Generator) regimeFilter(s models.Signal, frame *features.Frame, r models.Regime) models.Signal {
	last := frame.Last()
	switch r {
	case models.RegimeHighVolatility:
		atr, _ := frame.Column(features.FATR14)
		if last.ATR14 > features.Mean(atr)*g.p.ATRSpikeMultiplier {
			return models.SignalHold
		}
	case models.RegimeSideways:
		if s == models.SignalBuy && last.RSI7 > g.p.RSIOverbought {
			return models.SignalHold
		}
		if s == models.SignalSell && last.RSI7 < g.p.RSIOversold {
			return models.SignalHold
		}
	}
	return s
}

func (g *Generator) technicalFilter(s models.Signal, frame *features.Frame) models.Signal {
	last := frame.Last()
	if s == models.SignalBuy && last.MACDHist < 0 {
		s = models.SignalHold
	}
	if s == models.SignalSell && last.MACDHist > 0 {
		s = models.SignalHold
	}
	vols, _ := frame.Column(features.FVolume)
	if len(vols) > g.p.VolumeWindow {
		vols = vols[len(vols)-g.p.VolumeWindow:]
	}
	if last.Volume < features.Mean(vols)*g.p.VolumeRatio {
		s = models.SignalHold
	}
	return s
}
