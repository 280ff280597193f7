package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	models "DemandCast/internal/domain/models"
	domsvc "DemandCast/internal/domain/service"
	svcmetrics "DemandCast/internal/service/metrics"
	"DemandCast/internal/services/algorithms"
	xhttp "DemandCast/pkg/http"
	xlogger "DemandCast/pkg/logger"
	"DemandCast/pkg/queue"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Forecaster answers forecast requests, optionally reporting per-combination
// progress.
type Forecaster interface {
	domsvc.Forecaster
	ForecastWithProgress(ctx context.Context, cfg models.ForecastConfig, obs domsvc.ProgressObserver) (models.ForecastOutcome, error)
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// ForecastEchoHandler serves the forecasting routes.
type ForecastEchoHandler struct {
	logger   *xlogger.Logger
	svc      Forecaster
	jobs     queue.QueueService
	metrics  *svcmetrics.API
	limit    echo.MiddlewareFunc
	checks   map[string]HealthCheck
	upgrader websocket.Upgrader
}

type ForecastOption func(*ForecastEchoHandler)

// WithJobQueue enables the async routes.
func WithJobQueue(q queue.QueueService) ForecastOption {
	return func(h *ForecastEchoHandler) { h.jobs = q }
}

// WithRateLimit guards the forecast routes with mw.
func WithRateLimit(mw echo.MiddlewareFunc) ForecastOption {
	return func(h *ForecastEchoHandler) { h.limit = mw }
}

// WithHealthCheck adds a dependency to /api/health.
func WithHealthCheck(name string, check HealthCheck) ForecastOption {
	return func(h *ForecastEchoHandler) { h.checks[name] = check }
}

func NewForecastEchoHandler(logger *xlogger.Logger, svc Forecaster, m *svcmetrics.API, opts ...ForecastOption) *ForecastEchoHandler {
	h := &ForecastEchoHandler{
		logger:   logger,
		svc:      svc,
		metrics:  m,
		checks:   map[string]HealthCheck{},
		upgrader: newUpgrader(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/algorithms", h.Algorithms)

	var mw []echo.MiddlewareFunc
	if h.limit != nil {
		mw = append(mw, h.limit)
	}
	g.POST("/forecast", h.Forecast, mw...)
	g.POST("/forecast/async", h.ForecastAsync, mw...)
	g.GET("/forecast/jobs/:id", h.JobStatus)
	g.GET("/forecast/stream", h.Stream, mw...)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *ForecastEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	res := healthResponse{Status: "healthy", Checks: map[string]string{}}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			res.Status = "degraded"
			res.Checks[name] = err.Error()
			continue
		}
		res.Checks[name] = "ok"
	}
	if res.Status != "healthy" {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, res)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) Algorithms(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, models.AlgorithmsResponse{Algorithms: algorithms.Catalog()})
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	start := time.Now()
	defer h.metrics.Observe("forecast", start)

	req := &models.ForecastConfig{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Error("forecast", "client")
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.svc.Forecast(c.Request().Context(), *req)
	if err != nil {
		h.metrics.Error("forecast", errorKind(err))
		return errorResponse(c, h.logger, "forecast", err)
	}
	return xhttp.SuccessResponse(c, out.Payload())
}

func (h *ForecastEchoHandler) ForecastAsync(c echo.Context) error {
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("Background jobs are disabled"))
	}
	req := &models.ForecastConfig{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if _, err := algorithms.Parse(req.Algorithm); err != nil {
		return errorResponse(c, h.logger, "forecast async", err)
	}

	id, err := h.jobs.Enqueue(c.Request().Context(), models.JobTypeForecast, req)
	if err != nil {
		h.metrics.Error("forecast_async", "server")
		h.logger.Error("enqueue forecast failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("Could not queue the forecast"))
	}
	h.metrics.JobEnqueued(models.JobTypeForecast)
	return xhttp.AcceptedResponse(c, models.JobAccepted{JobID: id, ConfigHash: models.GenerateConfigHash(*req)})
}

func (h *ForecastEchoHandler) JobStatus(c echo.Context) error {
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("Background jobs are disabled"))
	}
	st, err := h.jobs.Status(c.Request().Context(), c.Param("id"))
	if errors.Is(err, queue.ErrStatusNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("Job not found"))
	}
	if err != nil {
		return errorResponse(c, h.logger, "job status", err)
	}
	return xhttp.SuccessResponse(c, st)
}
