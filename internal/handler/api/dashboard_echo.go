package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"TourCast/internal/domain/models"
	svccache "TourCast/internal/service/cache"
	"TourCast/internal/service/metrics"
	"TourCast/internal/service/ratelimit"
	"TourCast/internal/usecase"
	xhttp "TourCast/pkg/http"
	xlogger "TourCast/pkg/logger"
)

// HealthChecker reports whether the warehouse is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// DashboardEchoHandler serves the series, forecast and dashboard endpoints.
type DashboardEchoHandler struct {
	logger    *xlogger.Logger
	series    *usecase.SeriesUseCase
	forecast  *usecase.ForecastUseCase
	dashboard *usecase.DashboardUseCase
	cache     *svccache.SeriesCache
	limiter   *ratelimit.Limiter
	health    HealthChecker
}

// NewDashboardEchoHandler builds the handler. cache and limiter may be nil.
func NewDashboardEchoHandler(
	logger *xlogger.Logger,
	series *usecase.SeriesUseCase,
	forecast *usecase.ForecastUseCase,
	dashboard *usecase.DashboardUseCase,
	cache *svccache.SeriesCache,
	limiter *ratelimit.Limiter,
	health HealthChecker,
) *DashboardEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardEchoHandler{
		logger:    logger,
		series:    series,
		forecast:  forecast,
		dashboard: dashboard,
		cache:     cache,
		limiter:   limiter,
		health:    health,
	}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/series", h.Series)
	g.GET("/forecast", h.Forecast)
	g.GET("/stats", h.Stats)
	g.GET("/events", h.Events)
	g.GET("/dimensions/:name", h.Dimension)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/cache", h.CacheStats)
	g.DELETE("/cache", h.BustCache)
	e.GET("/healthz", h.Healthz)
}

func (h *DashboardEchoHandler) Series(c echo.Context) error {
	defer observe("series", time.Now())
	req := &models.SeriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "series", verr)
	}

	res, err := h.series.GetSeries(c.Request().Context(), usecase.GetSeriesParams{
		Filter:      req.Filter(),
		Granularity: models.Granularity(req.Granularity),
		Metric:      models.Metric(req.Metric),
	})
	if err != nil {
		return h.fail(c, "series", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) Forecast(c echo.Context) error {
	const endpoint = "forecast"
	defer observe(endpoint, time.Now())

	if h.limiter != nil && !h.limiter.Allow(c.RealIP()+":"+endpoint) {
		metrics.RateLimited.WithLabelValues(endpoint).Inc()
		h.logger.Warn("forecast rate limited", xlogger.String("remote", c.RealIP()))
		return h.fail(c, endpoint, xhttp.TooManyRequestsError("too many forecast requests, retry shortly"))
	}

	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, endpoint, verr)
	}
	horizon := req.Horizon
	if c.QueryParam("horizon") == "" {
		horizon = h.forecast.DefaultHorizon()
	}

	out, err := h.forecast.Forecast(c.Request().Context(), usecase.ForecastParams{
		Filter:      req.Filter(),
		Granularity: models.Granularity(req.Granularity),
		Horizon:     horizon,
	})
	if err != nil {
		return h.fail(c, endpoint, err)
	}

	switch out.Status {
	case models.OutcomeInsufficientData:
		appErr := xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", out.Message)
		metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
		return xhttp.AppErrorWithData(c, appErr, out)
	case models.OutcomeForecastUnavailable:
		appErr := xhttp.ServiceUnavailableError("ERR_FORECAST_UNAVAILABLE", "forecast unavailable, try again later")
		metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
		return xhttp.AppErrorWithData(c, appErr, out)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *DashboardEchoHandler) Stats(c echo.Context) error {
	defer observe("stats", time.Now())
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "stats", verr)
	}
	res, err := h.dashboard.Stats(c.Request().Context(), req.Filter())
	if err != nil {
		return h.fail(c, "stats", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Events lists the filtered event records, a page at a time.
func (h *DashboardEchoHandler) Events(c echo.Context) error {
	defer observe("events", time.Now())
	req := &models.EventsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "events", verr)
	}
	page, err := h.dashboard.Events(c.Request().Context(), usecase.EventsParams{
		Filter: req.Filter(),
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return h.fail(c, "events", err)
	}
	return xhttp.SuccessResponse(c, page)
}

func (h *DashboardEchoHandler) Dimension(c echo.Context) error {
	defer observe("dimensions", time.Now())
	req := &models.DimensionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "dimensions", verr)
	}
	vals, err := h.dashboard.Dimension(c.Request().Context(), models.Dimension(req.Name))
	if err != nil {
		return h.fail(c, "dimensions", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, map[string]interface{}{"dimension": req.Name, "values": vals})
}

func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	defer observe("dashboard", time.Now())
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "dashboard", verr)
	}
	// a non-positive horizon means the configured default here
	res, err := h.dashboard.Get(c.Request().Context(), usecase.DashboardParams{
		Filter:      req.Filter(),
		Granularity: models.Granularity(req.Granularity),
		Horizon:     req.Horizon,
	})
	if err != nil {
		return h.fail(c, "dashboard", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DashboardEchoHandler) CacheStats(c echo.Context) error {
	if h.cache == nil {
		return xhttp.SuccessResponse(c, map[string]bool{"enabled": false})
	}
	return xhttp.SuccessResponse(c, h.cache.Stats())
}

func (h *DashboardEchoHandler) BustCache(c echo.Context) error {
	if h.cache == nil {
		return xhttp.SuccessResponse(c, map[string]bool{"busted": false})
	}
	if err := h.cache.Bust(c.Request().Context()); err != nil {
		return h.fail(c, "cache", err)
	}
	h.logger.Info("cache busted via api", xlogger.String("remote", c.RealIP()))
	return xhttp.SuccessResponse(c, map[string]bool{"busted": true})
}

func (h *DashboardEchoHandler) Healthz(c echo.Context) error {
	if h.health == nil {
		return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	if err := h.health.Health(ctx); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *DashboardEchoHandler) badRequest(c echo.Context, endpoint string, verr interface{}) error {
	metrics.APIErrors.WithLabelValues(endpoint, "ERR_VALIDATION").Inc()
	return xhttp.BadRequestResponse(c, verr)
}

// fail maps domain errors onto AppErrors and writes the envelope.
func (h *DashboardEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrInvalidHorizon):
		return xhttp.BadRequestError("horizon", err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidGranularity):
		return xhttp.BadRequestError("granularity", err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidMetric):
		return xhttp.BadRequestError("metric", err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidDimension):
		return xhttp.BadRequestError("name", err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidRecord):
		return xhttp.UnprocessableError("ERR_INVALID_RECORD", err.Error()).WithError(err)
	}
	return xhttp.InternalError("something went wrong").WithError(err)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

