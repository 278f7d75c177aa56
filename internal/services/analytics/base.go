package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	svcmetrics "TradePulse/internal/service/metrics"
	xhttp "TradePulse/pkg/http"
)

// BreakerSettings configure the circuit guarding one endpoint.
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// HTTPServiceBase provides a DRY foundation for model and scaler HTTP clients.
// It centralizes client construction, circuit breaking and JSON POST handling.
type HTTPServiceBase struct {
	name    string
	baseURL string
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPServiceBase builds an HTTP client with timeout, base URL and a breaker
// that opens after FailureThreshold consecutive failures.
func NewHTTPServiceBase(name, baseURL string, timeout time.Duration, bs BreakerSettings) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if bs.FailureThreshold == 0 {
		bs.FailureThreshold = 3
	}
	st := gobreaker.Settings{Name: name, Timeout: bs.OpenTimeout}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= bs.FailureThreshold
	}
	st.OnStateChange = func(name string, _, to gobreaker.State) {
		svcmetrics.BreakerState.WithLabelValues(name).Set(float64(to))
	}
	return &HTTPServiceBase{
		name:    name,
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// PostJSON posts the given payload to `path` under baseURL and stores the raw
// response body in dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest *[]byte) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("analytics http client not initialized")
	}
	start := time.Now()
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    b.baseURL + path,
			Headers: map[string]string{
				"Content-Type": "application/json",
			},
			Body: payload,
		}, dest)
	})
	svcmetrics.AnalyticsLatency.WithLabelValues(b.name).Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.AnalyticsErrors.WithLabelValues(b.name).Inc()
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry posts JSON with up to `attempts` retries for transient
// errors. An open breaker ends the retries early.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest *[]byte, attempts int) error {
	if attempts <= 1 {
		return b.PostJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil || b.breaker.State() == gobreaker.StateOpen {
			return err
		}
		// simple backoff
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// State reports the breaker state.
func (b *HTTPServiceBase) State() gobreaker.State { return b.breaker.State() }
