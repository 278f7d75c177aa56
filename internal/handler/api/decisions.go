package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	icache "TradePulse/internal/service/cache"
	xhttp "TradePulse/pkg/http"
	xlogger "TradePulse/pkg/logger"
)

// DecisionReader exposes the pipeline state served by the API.
type DecisionReader interface {
	Latest() *models.CycleReport
	RiskHistory() []models.Signal
}

// DecisionsHandler serves the latest decision, archived decisions, the risk
// history and the live stream.
type DecisionsHandler struct {
	logger   *xlogger.Logger
	reader   DecisionReader
	store    domrepo.DecisionStore
	hub      *StreamHub
	cache    icache.BytesCache
	cacheTTL time.Duration
}

func NewDecisionsHandler(logger *xlogger.Logger, reader DecisionReader, store domrepo.DecisionStore, hub *StreamHub) *DecisionsHandler {
	return &DecisionsHandler{logger: logger, reader: reader, store: store, hub: hub}
}

// SetCache enables response caching of archive reads.
func (h *DecisionsHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache, h.cacheTTL = c, ttl
}

func (h *DecisionsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/decision/latest", h.Latest)
	g.GET("/history", h.History)
	g.GET("/risk/history", h.RiskHistory)
	if h.hub != nil {
		g.GET("/stream", h.hub.Serve)
	}
}

func (h *DecisionsHandler) Health(c echo.Context) error {
	body := map[string]interface{}{"status": "ok"}
	if r := h.reader.Latest(); r != nil {
		body["last_outcome"] = r.Outcome
		body["last_cycle"] = r.Timestamp
	}
	return c.JSON(http.StatusOK, body)
}

func (h *DecisionsHandler) Latest(c echo.Context) error {
	r := h.reader.Latest()
	if r == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no decision yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, r)
}

func (h *DecisionsHandler) RiskHistory(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.reader.RiskHistory())
}

func (h *DecisionsHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.store == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("decision archive disabled"))
	}
	ctx := c.Request().Context()
	key := fmt.Sprintf("history:%d", req.N)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(ctx, key); err == nil && ok {
			var rows []models.CycleReport
			if json.Unmarshal(b, &rows) == nil {
				return xhttp.ListResponse(c, rows, int64(len(rows)))
			}
		}
	}

	rows, err := h.store.RecentDecisions(ctx, req.N)
	if err != nil {
		h.logger.Error("history query failed", xlogger.String("stage", "api"), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history unavailable").WithError(err))
	}
	if h.cache != nil {
		if b, err := json.Marshal(rows); err == nil {
			_ = h.cache.SetBytes(ctx, key, b, h.cacheTTL)
		}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
