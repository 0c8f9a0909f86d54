package api

import (
	"net/http"
	"time"

	"DipWatch/internal/detector"
	models "DipWatch/internal/domain/models"
	"DipWatch/internal/scheduler"
	"DipWatch/internal/service/ratelimit"
	"DipWatch/internal/usecase"
	xhttp "DipWatch/pkg/http"
	xlogger "DipWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// slot request budget per client: burst of 10, 5 refills per second
const (
	slotBurst  = 10
	slotRefill = 5
)

// StatusEchoHandler exposes detector state, derived prices, alerts and
// notification slots over HTTP.
type StatusEchoHandler struct {
	logger    *xlogger.Logger
	engine    *detector.Engine
	sched     *scheduler.Scheduler
	collector *usecase.TickCollector
	limiter   *ratelimit.Limiter
}

func NewStatusEchoHandler(logger *xlogger.Logger, engine *detector.Engine, sched *scheduler.Scheduler, collector *usecase.TickCollector) *StatusEchoHandler {
	return &StatusEchoHandler{
		logger:    logger,
		engine:    engine,
		sched:     sched,
		collector: collector,
		limiter:   ratelimit.New(),
	}
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/prices", h.Prices)
	g.GET("/alerts/active", h.ActiveAlert)
	g.GET("/alerts/queued", h.QueuedAlerts)
	g.POST("/alerts/dismiss", h.DismissAlert)
	g.POST("/reconnect", h.Reconnect)
	g.GET("/slots", h.Slots)
	g.POST("/slots", h.RequestSlot)
	g.DELETE("/slots/:id", h.ReleaseSlot)
}

func (h *StatusEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, &models.StatusResponse{
		Status:      h.engine.Status(),
		Connected:   h.collector.IsConnected(),
		Threshold:   h.engine.Threshold(),
		ActiveAlert: h.engine.ActiveAlert() != nil,
		QueuedCount: len(h.engine.QueuedAlerts()),
		ActiveSlots: h.sched.ActiveCount(),
	})
}

func (h *StatusEchoHandler) Prices(c echo.Context) error {
	prices := h.engine.Prices()
	rows := make([]models.DerivedPrice, 0, len(prices))
	for _, sym := range models.Symbols {
		if p, ok := prices[sym]; ok {
			rows = append(rows, p)
		}
	}
	return xhttp.SuccessResponse(c, rows)
}

func (h *StatusEchoHandler) ActiveAlert(c echo.Context) error {
	alert := h.engine.ActiveAlert()
	if alert == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no active alert"))
	}
	return xhttp.SuccessResponse(c, alert)
}

// QueuedAlerts lists the pending queue, oldest first. Optional query
// filters: limit=N caps the count, since=<RFC3339|unix> drops alerts
// detected before that instant.
func (h *StatusEchoHandler) QueuedAlerts(c echo.Context) error {
	queued := h.engine.QueuedAlerts()

	since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{})
	if !since.IsZero() {
		kept := queued[:0]
		for _, a := range queued {
			if a.Timestamp >= since.UnixMilli() {
				kept = append(kept, a)
			}
		}
		queued = kept
	}

	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), len(queued))
	if limit >= 0 && limit < len(queued) {
		queued = queued[:limit]
	}
	return xhttp.SuccessResponse(c, queued)
}

func (h *StatusEchoHandler) DismissAlert(c echo.Context) error {
	h.engine.Dismiss()
	h.logger.Info("alert dismissed via api")
	return xhttp.NoContentResponse(c)
}

func (h *StatusEchoHandler) Reconnect(c echo.Context) error {
	if err := h.collector.ForceReconnect(); err != nil {
		h.logger.Warn("manual reconnect failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("reconnect failed").WithError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *StatusEchoHandler) Slots(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.sched.ActiveSlots())
}

func (h *StatusEchoHandler) RequestSlot(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP(), slotBurst, slotRefill) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many slot requests", http.StatusTooManyRequests))
	}

	req := &models.SlotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	slot, err := h.sched.Request(c.Request().Context(), time.Duration(req.TTLMs)*time.Millisecond)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("slot request failed").WithError(err))
	}
	return xhttp.CreatedResponse(c, slot)
}

func (h *StatusEchoHandler) ReleaseSlot(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "slot id is required")
	}
	h.sched.Release(id)
	return xhttp.NoContentResponse(c)
}
