package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourCast/internal/domain/models"
	svccache "TourCast/internal/service/cache"
	"TourCast/internal/service/ratelimit"
	"TourCast/internal/services/aggregation"
	"TourCast/internal/services/forecasting"
	"TourCast/internal/usecase"
	pkgcache "TourCast/pkg/cache"
	pkgmetrics "TourCast/pkg/metrics"
)

type memSource struct {
	rows      []models.EventRow
	healthErr error
}

func (s *memSource) Query(_ context.Context, f models.Filter) ([]models.EventRow, error) {
	var out []models.EventRow
	for _, r := range s.rows {
		if f.MatchesCategorical(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memSource) Distinct(_ context.Context, d models.Dimension) ([]string, error) {
	if d != models.DimState {
		return nil, nil
	}
	return []string{"Goa", "Kerala"}, nil
}

func (s *memSource) Stats(_ context.Context, _ models.Filter) (models.EventStats, error) {
	return models.EventStats{TotalEvents: int64(len(s.rows))}, nil
}

func (s *memSource) Health(context.Context) error { return s.healthErr }

// flatEngine echoes the history and repeats the last value.
type flatEngine struct{ err error }

func (e flatEngine) Name() string { return "flat" }

func (e flatEngine) Fit(_ context.Context, series []models.TimeSeriesPoint, _ models.Granularity, horizon int) ([]models.ForecastPoint, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]models.ForecastPoint, 0, len(series)+horizon)
	for _, p := range series {
		out = append(out, models.ForecastPoint{Timestamp: p.Timestamp, PointEstimate: p.Value, LowerBound: p.Value, UpperBound: p.Value})
	}
	last := series[len(series)-1]
	for h := 1; h <= horizon; h++ {
		out = append(out, models.ForecastPoint{Timestamp: last.Timestamp.AddDate(0, h, 0), PointEstimate: last.Value, LowerBound: last.Value, UpperBound: last.Value})
	}
	return out, nil
}

func rows(state string, months int) []models.EventRow {
	out := make([]models.EventRow, 0, months)
	for i := 0; i < months; i++ {
		v, rev, emp := 100.0, 5000.0, 3.0
		out = append(out, models.EventRow{
			Date:            time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0).Format("2006-01-02"),
			State:           state,
			Region:          "South",
			Visitors:        &v,
			RevenueINR:      &rev,
			LocalEmployment: &emp,
		})
	}
	return out
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Code string `json:"code"`
	} `json:"errors"`
}

func setup(t *testing.T, src *memSource, engine flatEngine, limiter *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	mc := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	rec := pkgmetrics.NewWithRegistry(prometheus.NewRegistry())
	cache := svccache.NewSeriesCache(mc, time.Minute)

	series := usecase.NewSeriesUseCase(src, aggregation.New(), cache, rec)
	fc := usecase.NewForecastUseCase(series, forecasting.NewForecaster(engine), cache, rec, 6)
	dash := usecase.NewDashboardUseCase(src, series, fc)

	e := echo.New()
	NewDashboardEchoHandler(nil, series, fc, dash, cache, limiter, src).RegisterRoutes(e)
	return e
}

func get(t *testing.T, e *echo.Echo, method, target string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestSeriesEndpoint(t *testing.T) {
	e := setup(t, &memSource{rows: append(rows("Kerala", 3), rows("Goa", 3)...)}, flatEngine{}, nil)

	code, env := get(t, e, http.MethodGet, "/api/series?state=Kerala&region=All")
	require.Equal(t, http.StatusOK, code)
	var res usecase.SeriesResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 100.0, res.Points[0].Value)
	assert.Nil(t, res.Filter.Region)

	code, _ = get(t, e, http.MethodGet, "/api/series?granularity=weekly")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, e, http.MethodGet, "/api/series?month=13")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestForecastEndpointStatuses(t *testing.T) {
	src := &memSource{rows: append(rows("Kerala", 36), rows("Goa", 5)...)}
	e := setup(t, src, flatEngine{}, nil)

	code, env := get(t, e, http.MethodGet, "/api/forecast?state=Kerala")
	require.Equal(t, http.StatusOK, code)
	var out models.ForecastOutcome
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, models.OutcomeOK, out.Status)
	assert.Equal(t, 6, out.Horizon, "configured default")
	assert.Len(t, out.Forecast.Future(), 6)
	require.NotNil(t, out.Summary.GrowthRate)
	assert.InDelta(t, 0, *out.Summary.GrowthRate, 1e-9)

	code, env = get(t, e, http.MethodGet, "/api/forecast?state=Goa&horizon=3")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "ERR_INSUFFICIENT_DATA", env.Errors[0].Code)
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Len(t, out.Series, 5, "history is still returned")

	for _, h := range []string{"0", "-2", "abc", "5000"} {
		code, _ = get(t, e, http.MethodGet, "/api/forecast?horizon="+h)
		assert.Equal(t, http.StatusBadRequest, code, "horizon=%s", h)
	}
}

func TestForecastEndpointUnavailable(t *testing.T) {
	e := setup(t, &memSource{rows: rows("Kerala", 36)}, flatEngine{err: errors.New("solver diverged")}, nil)
	code, env := get(t, e, http.MethodGet, "/api/forecast")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "ERR_FORECAST_UNAVAILABLE", env.Errors[0].Code)
}

func TestForecastEndpointRateLimited(t *testing.T) {
	e := setup(t, &memSource{rows: rows("Kerala", 36)}, flatEngine{}, ratelimit.New(1, 0.001))
	code, _ := get(t, e, http.MethodGet, "/api/forecast")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get(t, e, http.MethodGet, "/api/forecast")
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestDimensionsStatsAndDashboard(t *testing.T) {
	e := setup(t, &memSource{rows: rows("Kerala", 36)}, flatEngine{}, nil)

	code, env := get(t, e, http.MethodGet, "/api/dimensions/state")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"dimension":"state","values":["Goa","Kerala"]}`, string(env.Data))

	code, env = get(t, e, http.MethodGet, "/api/dimensions/event")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"dimension":"event","values":[]}`, string(env.Data))

	code, _ = get(t, e, http.MethodGet, "/api/dimensions/visitors")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = get(t, e, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total_events":36`)

	code, env = get(t, e, http.MethodGet, "/api/dashboard")
	require.Equal(t, http.StatusOK, code)
	var d usecase.Dashboard
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Empty(t, d.Errors)
	assert.Equal(t, 36, d.Series.Count)
	assert.Equal(t, models.OutcomeOK, d.Forecast.Status)
}

func TestCacheEndpoints(t *testing.T) {
	e := setup(t, &memSource{rows: rows("Kerala", 3)}, flatEngine{}, nil)
	get(t, e, http.MethodGet, "/api/series")
	get(t, e, http.MethodGet, "/api/series")

	code, env := get(t, e, http.MethodGet, "/api/cache")
	require.Equal(t, http.StatusOK, code)
	var st svccache.Stats
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, int64(1), st.Series.Hits)
	assert.Equal(t, int64(1), st.Series.Misses)

	code, env = get(t, e, http.MethodDelete, "/api/cache")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"busted":true}`, string(env.Data))
}

func TestHealthz(t *testing.T) {
	src := &memSource{}
	e := setup(t, src, flatEngine{}, nil)
	code, _ := get(t, e, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, code)

	src.healthErr = errors.New("connection refused")
	code, env := get(t, e, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(env.Data), "connection refused")
}

func TestToAppError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, toAppError(models.ErrInvalidHorizon).Status)
	assert.Equal(t, "metric", toAppError(models.ErrInvalidMetric).Field)
	assert.Equal(t, http.StatusUnprocessableEntity, toAppError(&models.InvalidRecordError{Index: 2}).Status)
	assert.Equal(t, http.StatusInternalServerError, toAppError(errors.New("db gone")).Status)
}

func TestEventsEndpoint(t *testing.T) {
	e := setup(t, &memSource{rows: append(rows("Kerala", 3), rows("Goa", 2)...)}, flatEngine{}, nil)

	code, env := get(t, e, http.MethodGet, "/api/events?limit=2&offset=1")
	require.Equal(t, http.StatusOK, code)
	var page usecase.EventPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 1, page.Offset)
	require.Len(t, page.Records, 2)
	// Goa sorts before Kerala on the shared first date
	assert.Equal(t, "Kerala", page.Records[0].State)
	assert.Equal(t, time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC), page.Records[0].Date)
	assert.Equal(t, "Goa", page.Records[1].State)
	assert.Equal(t, 5000.0, page.Records[1].RevenueINR)

	code, env = get(t, e, http.MethodGet, "/api/events?state=Goa")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 100, page.Limit, "default page size")

	code, env = get(t, e, http.MethodGet, "/api/events?offset=10")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"records":[]`)

	for _, q := range []string{"limit=5000", "offset=-1", "limit=abc", "month=13"} {
		code, _ = get(t, e, http.MethodGet, "/api/events?"+q)
		assert.Equal(t, http.StatusBadRequest, code, q)
	}
}
