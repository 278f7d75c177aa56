package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
)

type fakeSource struct {
	history    []models.Bar
	historyErr error
	latest     []models.Bar
	latestErr  error
}

func (s *fakeSource) FetchHistorical(context.Context, int) ([]models.Bar, error) {
	return s.history, s.historyErr
}

func (s *fakeSource) FetchLatest(context.Context) (*models.Bar, error) {
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	if len(s.latest) == 0 {
		return nil, nil
	}
	b := s.latest[0]
	s.latest = s.latest[1:]
	return &b, nil
}

type fakeArchive struct {
	stored []models.Bar
	recent []models.Bar
}

func (a *fakeArchive) StoreBars(_ context.Context, bars []models.Bar) error {
	a.stored = append(a.stored, bars...)
	return nil
}

func (a *fakeArchive) RecentBars(context.Context, time.Time, int) ([]models.Bar, error) {
	return a.recent, nil
}

type memState struct {
	latest  *models.CycleReport
	history []models.Signal
}

func (m *memState) SaveLatest(_ context.Context, r *models.CycleReport) error {
	m.latest = r
	return nil
}

func (m *memState) Latest(context.Context) (*models.CycleReport, error) { return m.latest, nil }

func (m *memState) SaveSignalHistory(_ context.Context, h []models.Signal) error {
	m.history = h
	return nil
}

func (m *memState) SignalHistory(context.Context) ([]models.Signal, error) { return m.history, nil }

func newRunner(f *fixture, src *fakeSource, arch *fakeArchive, st *memState) *Runner {
	cfg := RunnerConfig{HistoricalMinutes: 180, TickSecond: 59, CycleTimeout: time.Second}
	r := NewRunner(cfg, f.pipe, src, nil, nil, metrics.Nop{}, applogger.Nop())
	if arch != nil {
		r.archive = arch
	}
	if st != nil {
		r.state = st
	}
	return r
}

func TestRunnerWarmupAndTick(t *testing.T) {
	f := newFixture(t, nil)
	bars := trendBars(80)
	src := &fakeSource{history: bars[:79], latest: bars[79:]}
	arch := &fakeArchive{}
	st := &memState{history: []models.Signal{models.SignalSell}}
	r := newRunner(f, src, arch, st)

	require.NoError(t, r.Warmup(context.Background()))
	assert.Equal(t, []models.Signal{models.SignalSell}, f.pipe.RiskHistory())
	assert.Len(t, arch.stored, 79)

	rep := r.Tick(context.Background())
	require.Equal(t, models.OutcomePublished, rep.Outcome, rep.Reason)
	assert.Len(t, arch.stored, 80)
	assert.Same(t, rep, st.latest)
	assert.Equal(t, []models.Signal{models.SignalSell, models.SignalBuy}, st.history)
}

func TestRunnerWarmupFallsBackToArchive(t *testing.T) {
	f := newFixture(t, nil)
	bars := trendBars(79)
	src := &fakeSource{historyErr: errors.New("api down")}
	r := newRunner(f, src, &fakeArchive{recent: bars}, nil)

	require.NoError(t, r.Warmup(context.Background()))
	assert.Equal(t, 79, f.pipe.window.Len())
}

func TestRunnerWarmupWithoutData(t *testing.T) {
	f := newFixture(t, nil)
	r := newRunner(f, &fakeSource{historyErr: errors.New("api down")}, nil, nil)
	assert.ErrorIs(t, r.Warmup(context.Background()), ErrDataUnavailable)
}

func TestRunnerTickSkipsOnSourceError(t *testing.T) {
	f := newFixture(t, nil)
	r := newRunner(f, &fakeSource{latestErr: errors.New("502")}, nil, nil)

	rep := r.Tick(context.Background())
	assert.Equal(t, models.OutcomeSkipped, rep.Outcome)
}

func TestRunnerRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	r := newRunner(f, &fakeSource{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, r.Run(ctx))
}
