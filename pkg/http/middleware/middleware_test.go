package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	applogger "TradePulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRecoverReturns500(t *testing.T) {
	e := echo.New()
	e.Use(RequestID(), Recover(applogger.Nop()))
	e.GET("/boom", func(echo.Context) error { panic("boom") })

	rec := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestIDPropagates(t *testing.T) {
	e := echo.New()
	e.Use(RequestID(), RequestLogging(applogger.Nop(), "/healthz"))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/healthz", map[string]string{echo.HeaderXRequestID: "abc"})
	assert.Equal(t, "abc", rec.Header().Get(echo.HeaderXRequestID))
}

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS([]string{"https://dash.example"}))
	e.GET("/api/history", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/api/history", map[string]string{echo.HeaderOrigin: "https://dash.example"})
	assert.Equal(t, "https://dash.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serve(e, http.MethodGet, "/api/history", map[string]string{echo.HeaderOrigin: "https://evil.example"})
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestMetricsCountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := echo.New()
	e.Use(Metrics(reg, applogger.Nop(), 0))
	e.GET("/api/decision/latest", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) })

	serve(e, http.MethodGet, "/api/decision/latest", nil)
	serve(e, http.MethodGet, "/api/decision/latest", nil)

	n, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "4xx", statusClass(404))
}
