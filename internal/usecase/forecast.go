package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"TourCast/internal/domain/models"
	domrepo "TourCast/internal/domain/repository"
	svccache "TourCast/internal/service/cache"
	"TourCast/internal/services/forecasting"
	applogger "TourCast/pkg/logger"
)

// ForecastUseCase runs the full pipeline: series, fit, summary.
type ForecastUseCase struct {
	series         *SeriesUseCase
	forecaster     *forecasting.Forecaster
	cache          *svccache.SeriesCache
	metrics        domrepo.Metrics
	defaultHorizon int
	l              *applogger.Logger
	now            func() time.Time
}

func NewForecastUseCase(series *SeriesUseCase, forecaster *forecasting.Forecaster, cache *svccache.SeriesCache, metrics domrepo.Metrics, defaultHorizon int) *ForecastUseCase {
	if defaultHorizon < 1 {
		defaultHorizon = 24
	}
	return &ForecastUseCase{
		series:         series,
		forecaster:     forecaster,
		cache:          cache,
		metrics:        metrics,
		defaultHorizon: defaultHorizon,
		l:              applogger.Nop(),
		now:            time.Now,
	}
}

// SetLogger injects a structured logger.
func (uc *ForecastUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		uc.l = l
	}
}

// DefaultHorizon is used when a request does not name one.
func (uc *ForecastUseCase) DefaultHorizon() int { return uc.defaultHorizon }

type ForecastParams struct {
	Filter      models.Filter
	Granularity models.Granularity
	Horizon     int
}

// Forecast returns an outcome for every pipeline condition. Only caller
// mistakes and infrastructure failures come back as errors.
func (uc *ForecastUseCase) Forecast(ctx context.Context, p ForecastParams) (*models.ForecastOutcome, error) {
	if p.Horizon < 1 {
		return nil, fmt.Errorf("%w: got %d", models.ErrInvalidHorizon, p.Horizon)
	}
	if p.Granularity == "" {
		p.Granularity = models.DefaultGranularity()
	}

	key := svccache.ForecastKey(p.Filter, p.Granularity, p.Horizon)
	var gen uint64
	if uc.cache != nil {
		gen = uc.cache.Generation()
		var cached models.ForecastOutcome
		if uc.cache.Lookup(ctx, svccache.NSForecast, key, &cached) {
			return &cached, nil
		}
	}

	sr, err := uc.series.GetSeries(ctx, GetSeriesParams{Filter: p.Filter, Granularity: p.Granularity, Metric: models.MetricVisitors})
	if err != nil {
		return nil, err
	}

	out := &models.ForecastOutcome{
		RunID:          uuid.NewString(),
		Filter:         p.Filter,
		Granularity:    p.Granularity,
		Horizon:        p.Horizon,
		Series:         sr.Points,
		SkippedRecords: sr.SkippedRecords,
		GeneratedAt:    uc.now().UTC(),
	}

	start := time.Now()
	fc, err := uc.forecaster.Forecast(ctx, sr.Points, p.Granularity, p.Horizon)
	uc.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	switch {
	case err == nil:
		summary, serr := forecasting.Summarize(sr.Points, fc)
		if serr != nil {
			return nil, fmt.Errorf("summarize: %w", serr)
		}
		out.Status = models.OutcomeOK
		out.Forecast = fc
		out.Summary = &summary
	case errors.Is(err, models.ErrInsufficientData):
		out.Status = models.OutcomeInsufficientData
		out.Message = err.Error()
	case errors.Is(err, models.ErrFitFailure):
		out.Status = models.OutcomeForecastUnavailable
		out.Message = err.Error()
		uc.l.Warn("forecast unavailable",
			applogger.String("run_id", out.RunID),
			applogger.String("filter", p.Filter.CanonicalKey()),
			applogger.Error(err),
		)
	default:
		uc.metrics.RecordError("forecast")
		return nil, fmt.Errorf("forecast: %w", err)
	}
	uc.metrics.RecordForecastOutcome(string(out.Status))

	// a failed fit may be transient, so it is never cached
	if uc.cache != nil && out.Status != models.OutcomeForecastUnavailable {
		uc.cache.StoreIfCurrent(ctx, key, out, gen)
	}
	return out, nil
}
