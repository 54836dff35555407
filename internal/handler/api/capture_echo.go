package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	models "ChartSignal/internal/domain/models"
	"ChartSignal/internal/service/metrics"
	"ChartSignal/internal/service/ratelimit"
	xhttp "ChartSignal/pkg/http"
	xlogger "ChartSignal/pkg/logger"
)

// Capture is the controller surface exposed over HTTP.
type Capture interface {
	Start(ctx context.Context) error
	Stop() error
	Tick(ctx context.Context) models.TickResult
	Status() models.CaptureStatus
}

// CaptureEchoHandler starts, stops and manually triggers the capture loop.
type CaptureEchoHandler struct {
	logger  *xlogger.Logger
	capture Capture
	limiter *ratelimit.Limiter
	metrics *metrics.APIMetrics
}

func NewCaptureEchoHandler(logger *xlogger.Logger, capture Capture, limiter *ratelimit.Limiter, m *metrics.APIMetrics) *CaptureEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &CaptureEchoHandler{logger: logger, capture: capture, limiter: limiter, metrics: m}
}

func (h *CaptureEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/capture")
	g.GET("/state", h.State)
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.POST("/trigger", h.Trigger)
}

func (h *CaptureEchoHandler) State(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.capture.Status())
}

func (h *CaptureEchoHandler) Start(c echo.Context) error {
	defer h.metrics.Observe("start", time.Now())
	if err := h.capture.Start(c.Request().Context()); err != nil {
		h.metrics.Error("start")
		if models.IsCameraUnavailable(err) {
			h.logger.Warn("capture start refused", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ERR_CAMERA_UNAVAILABLE", err.Error()))
		}
		h.logger.Error("capture start failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError(err.Error()))
	}
	return xhttp.SuccessResponse(c, h.capture.Status())
}

func (h *CaptureEchoHandler) Stop(c echo.Context) error {
	if err := h.capture.Stop(); err != nil {
		h.metrics.Error("stop")
		h.logger.Warn("camera release failed", xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, h.capture.Status())
}

func (h *CaptureEchoHandler) Trigger(c echo.Context) error {
	defer h.metrics.Observe("trigger", time.Now())
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()+":trigger") {
		h.metrics.Limited("trigger")
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("manual capture rate limited"))
	}
	if h.capture.Status().State == models.StateIdle {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("capture is not running"))
	}
	res := h.capture.Tick(c.Request().Context())
	return xhttp.SuccessResponse(c, res)
}
