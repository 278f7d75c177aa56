package repository

import (
	"context"
	"time"

	"TradePulse/internal/domain/models"
)

// BarSource fetches minute bars from the upstream price API.
type BarSource interface {
	FetchHistorical(ctx context.Context, minutes int) ([]models.Bar, error)
	FetchLatest(ctx context.Context) (*models.Bar, error)
}

// ResultSink receives the payload of every published decision.
type ResultSink interface {
	Publish(ctx context.Context, report *models.CycleReport) error
	Name() string
}

// BarArchive persists bars and serves them back for warm-up.
type BarArchive interface {
	StoreBars(ctx context.Context, bars []models.Bar) error
	RecentBars(ctx context.Context, since time.Time, limit int) ([]models.Bar, error)
}

// DecisionStore persists cycle reports for the history endpoint.
type DecisionStore interface {
	StoreDecision(ctx context.Context, report *models.CycleReport) error
	RecentDecisions(ctx context.Context, n int) ([]models.CycleReport, error)
}

// StateCache keeps the latest report and the risk history across restarts.
type StateCache interface {
	SaveLatest(ctx context.Context, report *models.CycleReport) error
	Latest(ctx context.Context) (*models.CycleReport, error)
	SaveSignalHistory(ctx context.Context, history []models.Signal) error
	SignalHistory(ctx context.Context) ([]models.Signal, error)
}

type Metrics interface {
	RecordCycle(outcome string)
	RecordSkip(reason string)
	RecordError(kind string)
	RecordPredictorError(model string)
	RecordSignal(stage, signal string)
	RecordRegime(id int)
	RecordLastPrice(price float64)
	RecordPredictedPrice(price float64)
	RecordLatency(stage string, seconds float64)
}
