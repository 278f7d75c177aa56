package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	pkgch "TradePulse/pkg/clickhouse"
)

func newMockStore(t *testing.T) (*CHStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCHStore(pkgch.FromDB(db, "tradepulse")), mock
}

func TestCHStoreStoreBars(t *testing.T) {
	s, mock := newMockStore(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		{Time: t0, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Time: t0.Add(time.Minute), Open: 1.5, High: 2, Low: 1, Close: 1.8, Volume: 12},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO bars_1m"))
	for _, b := range bars {
		prep.ExpectExec().
			WithArgs(b.Time, b.Open, b.High, b.Low, b.Close, b.Volume).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, s.StoreBars(context.Background(), bars))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHStoreStoreBarsEmptyIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	require.NoError(t, s.StoreBars(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHStoreRecentBarsOldestFirst(t *testing.T) {
	s, mock := newMockStore(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"time", "open", "high", "low", "close", "volume"}).
		AddRow(t0.Add(2*time.Minute), 3.0, 3.0, 3.0, 3.0, 1.0).
		AddRow(t0.Add(time.Minute), 2.0, 2.0, 2.0, 2.0, 1.0).
		AddRow(t0, 1.0, 1.0, 1.0, 1.0, 1.0)
	mock.ExpectQuery("SELECT time, open, high, low, close, volume").
		WithArgs(t0, 180).
		WillReturnRows(rows)

	bars, err := s.RecentBars(context.Background(), t0, 180)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 1.0, bars[0].Close)
	assert.Equal(t, 3.0, bars[2].Close)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHStoreDecisionsRoundTrip(t *testing.T) {
	s, mock := newMockStore(t)
	r := &models.CycleReport{
		ID:             "abc",
		Timestamp:      time.Date(2024, 1, 1, 0, 1, 2, 0, time.UTC),
		BarTime:        time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC),
		Outcome:        models.OutcomePublished,
		Regime:         models.RegimeSideways,
		FinalSignal:    models.SignalBuy,
		PredictedPrice: 101,
		CurrentPrice:   100,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO decisions")).
		WithArgs("abc", r.Timestamp, r.BarTime, "published", uint8(2), "buy", 101.0, 100.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.StoreDecision(context.Background(), r))

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT report FROM decisions")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"report"}).AddRow(string(raw)).AddRow("not json"))

	out, err := s.RecentDecisions(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "abc", out[0].ID)
	assert.Equal(t, models.RegimeSideways, out[0].Regime)
	assert.Equal(t, models.SignalBuy, out[0].FinalSignal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements("tradepulse")
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE DATABASE IF NOT EXISTS tradepulse")
	assert.Len(t, SchemaStatements(""), 2)
}
