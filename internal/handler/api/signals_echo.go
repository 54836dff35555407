package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "ChartSignal/internal/domain/models"
	domrepo "ChartSignal/internal/domain/repository"
	"ChartSignal/internal/service/metrics"
	"ChartSignal/internal/usecase"
	xhttp "ChartSignal/pkg/http"
	xlogger "ChartSignal/pkg/logger"
)

// SignalsEchoHandler serves the signal store, statistics and archive history.
type SignalsEchoHandler struct {
	logger  *xlogger.Logger
	signals *usecase.SignalsUseCase
	history *usecase.HistoryUseCase
	metrics *metrics.APIMetrics
}

func NewSignalsEchoHandler(logger *xlogger.Logger, signals *usecase.SignalsUseCase, history *usecase.HistoryUseCase, m *metrics.APIMetrics) *SignalsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SignalsEchoHandler{logger: logger, signals: signals, history: history, metrics: m}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/signals")
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/history", h.History)
	g.GET("/:id/text", h.Text)
	e.GET("/api/health", h.Health)
}

func (h *SignalsEchoHandler) List(c echo.Context) error {
	defer h.metrics.Observe("list", time.Now())
	req := &models.ListSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.signals.List(domrepo.NormalizeBand(req.Band), req.Action, req.Limit)
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SignalsEchoHandler) Stats(c echo.Context) error {
	defer h.metrics.Observe("stats", time.Now())
	return xhttp.SuccessResponse(c, h.signals.Stats(c.Request().Context()))
}

func (h *SignalsEchoHandler) Text(c echo.Context) error {
	req := &models.SignalTextRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	text, ok := h.signals.Text(req.ID)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("signal %d not found", req.ID))
	}
	return xhttp.SuccessResponse(c, map[string]string{"text": text})
}

func (h *SignalsEchoHandler) History(c echo.Context) error {
	defer h.metrics.Observe("history", time.Now())
	if !h.history.Enabled() {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ERR_ARCHIVE_DISABLED", models.ErrArchiveDisabled.Error()))
	}
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var from, to time.Time
	if req.From != "" {
		t, ok := xhttp.ParseTime(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from must be RFC3339 or unix seconds"))
		}
		from = t
	}
	if req.To != "" {
		t, ok := xhttp.ParseTime(req.To)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to must be RFC3339 or unix seconds"))
		}
		to = t
	}

	res, err := h.history.GetHistory(c.Request().Context(), usecase.GetHistoryParams{From: from, To: to, Limit: req.Limit})
	switch {
	case errors.Is(err, models.ErrInvalidRange), errors.Is(err, models.ErrRangeTooWide):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_INVALID_RANGE", "from", err.Error(), http.StatusBadRequest))
	case err != nil:
		h.metrics.Error("history")
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_HISTORY", "", err.Error(), http.StatusBadGateway))
	}
	return xhttp.SuccessResponse(c, res)
}

// Health reports archive readiness. A disabled archive is not a failure.
func (h *SignalsEchoHandler) Health(c echo.Context) error {
	err := h.history.Health(c.Request().Context())
	switch {
	case errors.Is(err, models.ErrArchiveDisabled):
		return xhttp.SuccessResponse(c, map[string]string{"archive": "disabled"})
	case err != nil:
		h.logger.Warn("archive health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ERR_ARCHIVE_UNHEALTHY", err.Error()))
	}
	return xhttp.SuccessResponse(c, map[string]string{"archive": "ok"})
}
