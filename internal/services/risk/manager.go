package risk

import (
	"math"
	"sync"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/services/features"
	"TradePulse/pkg/logger"
)

// Params tune the risk guards.
type Params struct {
	StopLoss      float64
	ATRMultiplier float64
	HistorySize   int
	RecentWindow  int
	RepeatLimit   int
	RiskPerTrade  float64
	MinPosition   float64
	MaxPosition   float64
}

func DefaultParams() Params {
	return Params{
		StopLoss:      0.02,
		ATRMultiplier: 2,
		HistorySize:   5,
		RecentWindow:  4,
		RepeatLimit:   3,
		RiskPerTrade:  0.02,
		MinPosition:   10,
		MaxPosition:   1000,
	}
}

// Verdict is the outcome of the risk chain for one signal.
type Verdict struct {
	Signal       models.Signal `json:"signal"`
	StopPct      float64       `json:"stop_pct"`
	PositionSize float64       `json:"position_size"`
	Reason       string        `json:"reason,omitempty"`
}

// Manager applies stop-loss, position sizing and overtrading guards. It owns
// a bounded history of accepted signals.
type Manager struct {
	p   Params
	log *logger.Logger

	mu      sync.RWMutex
	history []models.Signal
}

func NewManager(p Params, log *logger.Logger) *Manager {
	if p.HistorySize < 1 {
		p.HistorySize = 1
	}
	return &Manager{p: p, log: log, history: make([]models.Signal, 0, p.HistorySize)}
}

// Filter returns the signal to act on. Hold passes straight through and is
// not recorded.
func (m *Manager) Filter(s models.Signal, frame *features.Frame) Verdict {
	v := Verdict{Signal: s}
	if !s.Active() {
		return v
	}
	if frame.Len() > 0 {
		last := frame.Last()
		if last.Close > 0 {
			v.StopPct = m.p.ATRMultiplier * last.ATR14 / last.Close
		}
	}
	if v.StopPct > m.p.StopLoss {
		m.log.Warn("stop distance too wide, holding",
			logger.String("stage", "risk"), logger.Float("stop_pct", v.StopPct), logger.Float("limit", m.p.StopLoss))
		v.Signal, v.Reason = models.SignalHold, "stop_loss"
	}
	v.PositionSize = m.positionSize(v.Signal, v.StopPct)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.push(v.Signal)
	if v.Signal.Active() && m.overtrading(v.Signal) {
		m.log.Warn("overtrading guard, holding",
			logger.String("stage", "risk"), logger.String("signal", v.Signal.String()))
		v.Signal, v.Reason, v.PositionSize = models.SignalHold, "overtrading", 0
	}
	return v
}

// positionSize sizes the trade so the loss at the stop equals RiskPerTrade of
// the maximum position. It does not alter the signal.
func (m *Manager) positionSize(s models.Signal, stopPct float64) float64 {
	if !s.Active() {
		return 0
	}
	if stopPct <= 0 {
		return m.p.MaxPosition
	}
	size := m.p.MaxPosition * math.Min(m.p.RiskPerTrade/stopPct, 1)
	return math.Max(size, m.p.MinPosition)
}

func (m *Manager) push(s models.Signal) {
	if len(m.history) == m.p.HistorySize {
		copy(m.history, m.history[1:])
		m.history = m.history[:len(m.history)-1]
	}
	m.history = append(m.history, s)
}

func (m *Manager) overtrading(s models.Signal) bool {
	if len(m.history) < m.p.RecentWindow {
		return false
	}
	count := 0
	for _, h := range m.history[len(m.history)-m.p.RecentWindow:] {
		if h == s {
			count++
		}
	}
	return count >= m.p.RepeatLimit
}

// History returns a copy of the recorded signals, oldest first.
func (m *Manager) History() []models.Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Signal, len(m.history))
	copy(out, m.history)
	return out
}

// Restore replaces the history, keeping the newest entries that fit.
func (m *Manager) Restore(h []models.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = m.history[:0]
	if len(h) > m.p.HistorySize {
		h = h[len(h)-m.p.HistorySize:]
	}
	m.history = append(m.history, h...)
}
