package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/services/features"
)

type rowOpt func(*features.Row)

func frame(n int, last ...rowOpt) *features.Frame {
	rows := make([]features.Row, n)
	for i := range rows {
		rows[i] = features.Row{Close: 100, Volume: 1000, ATR14: 0.1, RSI7: 50, MACDHist: 0.01}
	}
	for _, o := range last {
		o(&rows[n-1])
	}
	return features.NewFrame(rows)
}

func TestPrimitive(t *testing.T) {
	g := NewGenerator(DefaultParams())
	tests := []struct {
		pred float64
		hist float64
		want models.Signal
	}{
		{100.5, 0.01, models.SignalBuy},
		{99.5, -0.01, models.SignalSell},
		{100.1, 0.01, models.SignalHold},
		{100.2, 0.01, models.SignalHold},
	}
	for _, tt := range tests {
		d := g.Generate(tt.pred, frame(30, func(r *features.Row) { r.MACDHist = tt.hist }), models.RegimeTrendFollowing)
		assert.Equal(t, tt.want, d.Final, "pred %v", tt.pred)
		assert.Equal(t, tt.want, d.Primitive, "pred %v", tt.pred)
	}
}

func TestRegimeFilter(t *testing.T) {
	g := NewGenerator(DefaultParams())

	d := g.Generate(101, frame(30, func(r *features.Row) { r.ATR14 = 1 }), models.RegimeHighVolatility)
	assert.Equal(t, models.SignalBuy, d.Primitive)
	assert.Equal(t, models.SignalHold, d.AfterRegime)

	d = g.Generate(101, frame(30), models.RegimeHighVolatility)
	assert.Equal(t, models.SignalBuy, d.Final)

	d = g.Generate(101, frame(30, func(r *features.Row) { r.RSI7 = 75 }), models.RegimeSideways)
	assert.Equal(t, models.SignalHold, d.AfterRegime)

	d = g.Generate(99, frame(30, func(r *features.Row) { r.RSI7 = 25; r.MACDHist = -1 }), models.RegimeSideways)
	assert.Equal(t, models.SignalHold, d.AfterRegime)

	// RSI only matters in sideways markets.
	d = g.Generate(101, frame(30, func(r *features.Row) { r.RSI7 = 75 }), models.RegimeLowVolatility)
	assert.Equal(t, models.SignalBuy, d.Final)
}

func TestTechnicalFilter(t *testing.T) {
	g := NewGenerator(DefaultParams())

	d := g.Generate(101, frame(30, func(r *features.Row) { r.MACDHist = -0.5 }), models.RegimeTrendFollowing)
	assert.Equal(t, models.SignalBuy, d.AfterRegime)
	assert.Equal(t, models.SignalHold, d.Final)

	d = g.Generate(99, frame(30, func(r *features.Row) { r.MACDHist = 0.5 }), models.RegimeTrendFollowing)
	assert.Equal(t, models.SignalHold, d.Final)

	d = g.Generate(101, frame(30, func(r *features.Row) { r.Volume = 400 }), models.RegimeTrendFollowing)
	assert.Equal(t, models.SignalHold, d.Final)
}

func TestFiltersNeverUpgrade(t *testing.T) {
	g := NewGenerator(DefaultParams())
	rank := map[models.Signal]int{models.SignalHold: 0, models.SignalBuy: 1, models.SignalSell: 1}
	preds := []float64{90, 99.9, 100, 100.1, 110}
	regimes := models.AllRegimes()
	opts := []rowOpt{
		func(r *features.Row) {},
		func(r *features.Row) { r.ATR14 = 5 },
		func(r *features.Row) { r.RSI7 = 90 },
		func(r *features.Row) { r.RSI7 = 10; r.MACDHist = -1 },
		func(r *features.Row) { r.Volume = 1 },
	}
	for _, p := range preds {
		for _, r := range regimes {
			for _, o := range opts {
				d := g.Generate(p, frame(25, o), r)
				assert.LessOrEqual(t, rank[d.AfterRegime], rank[d.Primitive])
				assert.LessOrEqual(t, rank[d.Final], rank[d.AfterRegime])
				if d.Final != models.SignalHold {
					assert.Equal(t, d.Primitive, d.Final)
				}
			}
		}
	}
}

func TestDegenerateInput(t *testing.T) {
	g := NewGenerator(DefaultParams())
	assert.Equal(t, models.SignalHold, g.Generate(200, features.NewFrame(nil), models.RegimeTrendFollowing).Final)
	assert.Equal(t, models.SignalHold, g.Generate(200, frame(5, func(r *features.Row) { r.Close = 0 }), models.RegimeTrendFollowing).Final)
}
