package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/services/features"
	"TradePulse/pkg/logger"
)

func calmFrame(atr float64) *features.Frame {
	return features.NewFrame([]features.Row{{Close: 100, ATR14: atr}})
}

func TestHoldPassesThrough(t *testing.T) {
	m := NewManager(DefaultParams(), logger.Nop())
	v := m.Filter(models.SignalHold, calmFrame(5))
	assert.Equal(t, models.SignalHold, v.Signal)
	assert.Empty(t, m.History())
}

func TestStopLoss(t *testing.T) {
	m := NewManager(DefaultParams(), logger.Nop())
	v := m.Filter(models.SignalBuy, calmFrame(1.5)) // 2*1.5/100 = 3%
	assert.Equal(t, models.SignalHold, v.Signal)
	assert.Equal(t, "stop_loss", v.Reason)
	assert.InDelta(t, 0.03, v.StopPct, 1e-12)
	assert.Equal(t, []models.Signal{models.SignalHold}, m.History())

	v = m.Filter(models.SignalSell, calmFrame(0.5)) // 1%
	assert.Equal(t, models.SignalSell, v.Signal)
	assert.InDelta(t, 1000.0, v.PositionSize, 1e-9)
}

func TestOvertradingBuyRun(t *testing.T) {
	m := NewManager(DefaultParams(), logger.Nop())
	var got []models.Signal
	for i := 0; i < 4; i++ {
		got = append(got, m.Filter(models.SignalBuy, calmFrame(0.1)).Signal)
	}
	assert.Equal(t, []models.Signal{models.SignalBuy, models.SignalBuy, models.SignalBuy, models.SignalHold}, got)
	// The pre-guard signal is what gets remembered.
	assert.Equal(t, []models.Signal{models.SignalBuy, models.SignalBuy, models.SignalBuy, models.SignalBuy}, m.History())
}

func TestOvertradingSellAndMixed(t *testing.T) {
	m := NewManager(DefaultParams(), logger.Nop())
	seq := []models.Signal{models.SignalSell, models.SignalBuy, models.SignalSell, models.SignalSell}
	var got []models.Signal
	for _, s := range seq {
		got = append(got, m.Filter(s, calmFrame(0.1)).Signal)
	}
	assert.Equal(t, models.SignalHold, got[3])
	assert.Equal(t, models.SignalBuy, m.Filter(models.SignalBuy, calmFrame(0.1)).Signal)
}

func TestHistoryIsBounded(t *testing.T) {
	m := NewManager(DefaultParams(), logger.Nop())
	for i := 0; i < 12; i++ {
		s := models.SignalBuy
		if i%2 == 0 {
			s = models.SignalSell
		}
		m.Filter(s, calmFrame(0.1))
	}
	h := m.History()
	require.Len(t, h, 5)
	assert.Equal(t, models.SignalBuy, h[4])

	h[0] = models.SignalHold
	assert.NotEqual(t, models.SignalHold, m.History()[0])
}

func TestRestore(t *testing.T) {
	m := NewManager(DefaultParams(), logger.Nop())
	m.Restore([]models.Signal{models.SignalSell, models.SignalBuy, models.SignalBuy, models.SignalBuy, models.SignalHold, models.SignalBuy})
	assert.Len(t, m.History(), 5)
	assert.Equal(t, models.SignalHold, m.Filter(models.SignalBuy, calmFrame(0.1)).Signal)
}

func TestPositionSize(t *testing.T) {
	m := NewManager(DefaultParams(), logger.Nop())
	v := m.Filter(models.SignalBuy, calmFrame(0.9)) // stop 1.8%
	assert.InDelta(t, 1000.0, v.PositionSize, 1e-9)

	p := DefaultParams()
	p.RiskPerTrade = 0.001
	m = NewManager(p, logger.Nop())
	v = m.Filter(models.SignalBuy, calmFrame(0.5)) // stop 1%, size 1000*0.1
	assert.InDelta(t, 100.0, v.PositionSize, 1e-9)
}
