package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	icache "TradePulse/internal/service/cache"
	applogger "TradePulse/pkg/logger"
)

func sampleReport() *models.CycleReport {
	return &models.CycleReport{
		ID:             "r-1",
		BarTime:        time.Unix(1700000000, 0).UTC(),
		Outcome:        models.OutcomePublished,
		Regime:         models.RegimeTrendFollowing,
		PredictedPrice: 123.5,
		FinalSignal:    models.SignalSell,
	}
}

func TestHTTPSinkPostsPayload(t *testing.T) {
	var got models.PredictionResult
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Prices/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(b, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL, "/Prices/send", time.Second)
	require.NoError(t, s.Publish(context.Background(), sampleReport()))
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, 123.5, got.PredictedPrice)
	assert.Equal(t, int64(1700000000), got.Timestamp)
	assert.Equal(t, 1, got.RegimeID)
	assert.Equal(t, models.SignalSell, got.Signal)
}

type fakePublisher struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func TestKafkaSink(t *testing.T) {
	p := &fakePublisher{}
	s := NewKafkaSink(p, "decisions")
	require.NoError(t, s.Publish(context.Background(), sampleReport()))
	assert.Equal(t, "decisions", p.topic)
	assert.Equal(t, []byte("r-1"), p.key)
	assert.Equal(t, sampleReport().Result(), p.value)
}

type stubSink struct {
	name  string
	err   error
	calls int
}

func (s *stubSink) Name() string { return s.name }
func (s *stubSink) Publish(context.Context, *models.CycleReport) error {
	s.calls++
	return s.err
}

func TestFanOutContinuesAfterFailure(t *testing.T) {
	bad := &stubSink{name: "bad", err: errors.New("boom")}
	good := &stubSink{name: "good"}
	f := NewFanOut(applogger.Nop(), time.Second, bad)
	f.Add(good)

	err := f.Publish(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
	assert.Equal(t, []string{"bad", "good"}, f.Names())
}

func TestCacheStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewCacheState(icache.NewTTLCache(), "tp:", time.Minute)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.SaveLatest(ctx, sampleReport()))
	latest, err = s.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "r-1", latest.ID)
	assert.Equal(t, models.RegimeTrendFollowing, latest.Regime)

	h := []models.Signal{models.SignalBuy, models.SignalHold, models.SignalSell}
	require.NoError(t, s.SaveSignalHistory(ctx, h))
	got, err := s.SignalHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}
