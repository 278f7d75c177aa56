package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	pkgch "TradePulse/pkg/clickhouse"
	applogger "TradePulse/pkg/logger"
)

const (
	barsTable      = "bars_1m"
	decisionsTable = "decisions"
)

// SchemaStatements returns the idempotent DDL for the archive tables.
func SchemaStatements(database string) []string {
	stmts := []string{}
	if database != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database))
	}
	return append(stmts,
		`CREATE TABLE IF NOT EXISTS `+barsTable+` (
            time   DateTime('UTC'),
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY time`,
		`CREATE TABLE IF NOT EXISTS `+decisionsTable+` (
            id              String,
            ts              DateTime64(3, 'UTC'),
            bar_time        DateTime('UTC'),
            outcome         LowCardinality(String),
            regime_id       UInt8,
            final_signal    LowCardinality(String),
            predicted_price Float64,
            current_price   Float64,
            report          String
        ) ENGINE = MergeTree
        ORDER BY ts`,
	)
}

// CHStore archives bars and cycle reports in ClickHouse.
type CHStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHStore(ch *pkgch.Client) *CHStore {
	return &CHStore{db: ch.DB(), l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// StoreBars inserts bars in a single batch.
func (s *CHStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bars batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+barsTable+" (time, open, high, low, close, volume)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare bars batch: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Time.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			_ = tx.Rollback()
			s.l.Error("clickhouse store_bars exec error", applogger.String("table", barsTable), applogger.Error(err))
			return fmt.Errorf("append bar: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.l.Error("clickhouse store_bars commit error", applogger.String("table", barsTable), applogger.Error(err))
		return fmt.Errorf("commit bars batch: %w", err)
	}
	s.l.Debug("clickhouse store_bars ok",
		applogger.String("table", barsTable),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// RecentBars returns up to limit bars at or after since, oldest first.
func (s *CHStore) RecentBars(ctx context.Context, since time.Time, limit int) ([]models.Bar, error) {
	start := time.Now()
	const q = `
        SELECT time, open, high, low, close, volume
        FROM ` + barsTable + ` FINAL
        WHERE time >= ?
        ORDER BY time DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, since.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse recent_bars query error", applogger.String("table", barsTable), applogger.Error(err))
		return nil, fmt.Errorf("recent bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, limit)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = b.Time.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.l.Info("clickhouse recent_bars ok",
		applogger.String("table", barsTable),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreDecision appends one cycle report.
func (s *CHStore) StoreDecision(ctx context.Context, r *models.CycleReport) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	const q = `INSERT INTO ` + decisionsTable + `
        (id, ts, bar_time, outcome, regime_id, final_signal, predicted_price, current_price, report)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		r.ID, r.Timestamp.UTC(), r.BarTime.UTC(), string(r.Outcome), uint8(r.Regime.ID()),
		string(r.FinalSignal), r.PredictedPrice, r.CurrentPrice, string(raw),
	)
	if err != nil {
		s.l.Error("clickhouse store_decision error",
			applogger.String("table", decisionsTable),
			applogger.String("id", r.ID),
			applogger.Error(err),
		)
		return fmt.Errorf("store decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the newest n reports, newest first.
func (s *CHStore) RecentDecisions(ctx context.Context, n int) ([]models.CycleReport, error) {
	const q = `SELECT report FROM ` + decisionsTable + ` ORDER BY ts DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		s.l.Error("clickhouse recent_decisions query error", applogger.String("table", decisionsTable), applogger.Error(err))
		return nil, fmt.Errorf("recent decisions: %w", err)
	}
	defer rows.Close()

	out := make([]models.CycleReport, 0, n)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		var r models.CycleReport
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			s.l.Warn("skipping undecodable report", applogger.Error(err))
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var (
	_ domrepo.BarArchive    = (*CHStore)(nil)
	_ domrepo.DecisionStore = (*CHStore)(nil)
)
