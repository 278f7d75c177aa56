package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

// RunnerConfig controls warm-up and scheduling.
type RunnerConfig struct {
	HistoricalMinutes int
	TickSecond        int
	CycleTimeout      time.Duration
}

// Runner feeds the pipeline from a bar source once per minute. The archive
// and state cache are optional.
type Runner struct {
	cfg     RunnerConfig
	pipe    *Pipeline
	source  domrepo.BarSource
	archive domrepo.BarArchive
	state   domrepo.StateCache
	metrics domrepo.Metrics
	log     *applogger.Logger
	now     func() time.Time
}

func NewRunner(cfg RunnerConfig, pipe *Pipeline, source domrepo.BarSource, archive domrepo.BarArchive,
	state domrepo.StateCache, m domrepo.Metrics, l *applogger.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		pipe:    pipe,
		source:  source,
		archive: archive,
		state:   state,
		metrics: m,
		log:     l.With(applogger.String("component", "runner")),
		now:     time.Now,
	}
}

// Warmup restores persisted state and fills the window with history. The
// archive is used when the source cannot serve history.
func (r *Runner) Warmup(ctx context.Context) error {
	r.restore(ctx)

	bars, err := r.source.FetchHistorical(ctx, r.cfg.HistoricalMinutes)
	if err != nil || len(bars) == 0 {
		r.metrics.RecordError("source")
		r.log.Warn("historical fetch failed",
			applogger.String("stage", "source"), applogger.Error(err))
		bars = r.fromArchive(ctx)
	} else if r.archive != nil {
		if err := r.archive.StoreBars(ctx, bars); err != nil {
			r.log.Warn("archive store failed", applogger.String("stage", "archive"), applogger.Error(err))
		}
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: no historical bars", ErrDataUnavailable)
	}
	r.pipe.Warmup(bars)
	return nil
}

func (r *Runner) fromArchive(ctx context.Context) []models.Bar {
	if r.archive == nil {
		return nil
	}
	since := r.now().UTC().Add(-time.Duration(r.cfg.HistoricalMinutes) * time.Minute)
	bars, err := r.archive.RecentBars(ctx, since, r.cfg.HistoricalMinutes)
	if err != nil {
		r.log.Warn("archive warm-up failed", applogger.String("stage", "archive"), applogger.Error(err))
		return nil
	}
	r.log.Info("warming up from archive", applogger.String("stage", "archive"), applogger.Int("bars", len(bars)))
	return bars
}

func (r *Runner) restore(ctx context.Context) {
	if r.state == nil {
		return
	}
	if h, err := r.state.SignalHistory(ctx); err != nil {
		r.log.Warn("signal history restore failed", applogger.String("stage", "risk"), applogger.Error(err))
	} else if len(h) > 0 {
		r.pipe.RestoreRiskHistory(h)
		r.log.Info("signal history restored", applogger.String("stage", "risk"), applogger.Int("entries", len(h)))
	}
	if rep, err := r.state.Latest(ctx); err == nil && rep != nil {
		r.pipe.SetLatest(rep)
	}
}

// Tick fetches the newest bar and runs one cycle.
func (r *Runner) Tick(ctx context.Context) *models.CycleReport {
	if r.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CycleTimeout)
		defer cancel()
	}

	bar, err := r.source.FetchLatest(ctx)
	if err != nil {
		r.metrics.RecordError("source")
		r.log.Warn("latest bar unavailable", applogger.String("stage", "source"), applogger.Error(err))
		bar = nil
	}
	if bar != nil && r.archive != nil {
		if err := r.archive.StoreBars(ctx, []models.Bar{*bar}); err != nil {
			r.log.Warn("archive store failed", applogger.String("stage", "archive"), applogger.Error(err))
		}
	}

	rep := r.pipe.Step(ctx, bar)
	r.persist(ctx, rep)
	return rep
}

func (r *Runner) persist(ctx context.Context, rep *models.CycleReport) {
	if r.state == nil {
		return
	}
	if err := r.state.SaveLatest(ctx, rep); err != nil {
		r.log.Warn("state save failed", applogger.String("stage", "state"), applogger.Error(err))
	}
	if err := r.state.SaveSignalHistory(ctx, r.pipe.RiskHistory()); err != nil {
		r.log.Warn("signal history save failed", applogger.String("stage", "state"), applogger.Error(err))
	}
}

// Run ticks at TickSecond of every minute until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	for {
		now := r.now()
		next := util.NextTick(now, r.cfg.TickSecond)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			r.Tick(ctx)
		}
	}
}
