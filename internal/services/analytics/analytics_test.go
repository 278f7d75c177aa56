package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPredictorResponseShapes(t *testing.T) {
	bodies := map[string]string{
		"/models/a/predict": `{"prediction": 0.25}`,
		"/models/b/predict": `{"predictions": [[0.5]]}`,
		"/models/c/predict": `{"predictions": [0.75]}`,
		"/models/d/predict": `{"predictions": []}`,
	}
	var gotShape []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotShape = []int{len(req.Instances), len(req.Instances[0]), len(req.Instances[0][0])}
		_, _ = io.WriteString(w, bodies[r.URL.Path])
	}))
	defer srv.Close()

	window := [][]float64{{1, 2, 3}, {4, 5, 6}}
	cases := map[string]float64{"a": 0.25, "b": 0.5, "c": 0.75}
	for name, want := range cases {
		p := NewHTTPPredictor(name, "/models/%s/predict", NewHTTPServiceBase(name, srv.URL, time.Second, BreakerSettings{}))
		got, err := p.Predict(context.Background(), window)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, []int{1, 2, 3}, gotShape)

	p := NewHTTPPredictor("d", "/models/%s/predict", NewHTTPServiceBase("d", srv.URL, time.Second, BreakerSettings{}))
	_, err := p.Predict(context.Background(), window)
	assert.Error(t, err)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	base := NewHTTPServiceBase("lstm", srv.URL, time.Second, BreakerSettings{FailureThreshold: 3, OpenTimeout: time.Minute})
	p := NewHTTPPredictor("lstm", "/predict", base)
	for i := 0; i < 5; i++ {
		_, err := p.Predict(context.Background(), [][]float64{{1}})
		assert.Error(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, gobreaker.StateOpen, base.State())
}

func TestFileScalerMinMax(t *testing.T) {
	dir := t.TempDir()
	fx := filepath.Join(dir, "x.json")
	fy := filepath.Join(dir, "y.json")
	require.NoError(t, os.WriteFile(fx, []byte(`{"type":"minmax","min_":[-1, 0],"scale_":[0.1, 2]}`), 0o600))
	require.NoError(t, os.WriteFile(fy, []byte(`{"type":"minmax","min_":[-5],"scale_":[0.05]}`), 0o600))

	s, err := NewFileScaler(fx, fy)
	require.NoError(t, err)

	out, err := s.TransformFeatures(context.Background(), [][]float64{{10, 0.25}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out[0][0], 1e-12)
	assert.InDelta(t, 0.5, out[0][1], 1e-12)

	price, err := s.InverseTransformPrediction(context.Background(), 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 110.0, price, 1e-9)

	_, err = s.TransformFeatures(context.Background(), [][]float64{{1}})
	assert.Error(t, err)
}

func TestFileScalerStandardAndMissingTarget(t *testing.T) {
	dir := t.TempDir()
	fx := filepath.Join(dir, "x.json")
	require.NoError(t, os.WriteFile(fx, []byte(`{"type":"standard","mean_":[100],"scale_":[4]}`), 0o600))

	s, err := NewFileScaler(fx, filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	out, err := s.TransformFeatures(context.Background(), [][]float64{{108}})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out[0][0], 1e-12)

	_, err = s.InverseTransformPrediction(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoTargetScaler)
}

func TestParseScalerRejectsBadInput(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"type":"robust","scale_":[1]}`,
		`{"type":"minmax","min_":[0],"scale_":[0]}`,
		`{"type":"minmax","min_":[0,1],"scale_":[1]}`,
		`{"type":"standard","mean_":[0],"scale_":[0]}`,
	} {
		_, err := parseScaler([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestHTTPScaler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scaler/transform":
			var req struct {
				Rows [][]float64 `json:"rows"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			for i := range req.Rows {
				for j := range req.Rows[i] {
					req.Rows[i][j] /= 10
				}
			}
			_ = json.NewEncoder(w).Encode(req)
		case "/scaler/inverse":
			_, _ = io.WriteString(w, `{"value": 42.5}`)
		}
	}))
	defer srv.Close()

	s := NewHTTPScaler(NewHTTPServiceBase("scaler", srv.URL, time.Second, BreakerSettings{}))
	out, err := s.TransformFeatures(context.Background(), [][]float64{{10, 20}, {30, 40}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, out)

	v, err := s.InverseTransformPrediction(context.Background(), 0.3)
	require.NoError(t, err)
	assert.Equal(t, 42.5, v)
}
