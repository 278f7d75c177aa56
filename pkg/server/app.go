package server

import (
	"context"
	"fmt"

	"TradePulse/internal/usecase"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	applogger "TradePulse/pkg/logger"
)

// App encapsulates the service lifecycle: HTTP API, warm-up and the
// minute-aligned decision loop.
type App struct {
	cfg        *config.Config
	runner     *usecase.Runner
	httpServer *xhttp.Server
	log        *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, runner *usecase.Runner, httpServer *xhttp.Server, log *applogger.Logger) *App {
	return &App{cfg: cfg, runner: runner, httpServer: httpServer, log: log}
}

// Runner exposes the decision loop, e.g. for single-cycle runs.
func (a *App) Runner() *usecase.Runner { return a.runner }

// Run starts the API, warms the window up and ticks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("http server start: %w", err)
		}
	}

	if err := a.runner.Warmup(ctx); err != nil {
		// The loop still runs; the window fills one bar per tick.
		a.log.Warn("warm-up incomplete", applogger.Error(err))
	}
	a.log.Info("decision loop started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("tick_second", a.cfg.Pipeline.TickSecond),
		applogger.Int("lookback", a.cfg.Pipeline.Lookback),
	)

	err := a.runner.Run(ctx)
	a.log.Info("shutdown signal received")
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	if a.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
}
