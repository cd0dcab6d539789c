package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"TourCast/internal/domain/models"
	domrepo "TourCast/internal/domain/repository"
	svccache "TourCast/internal/service/cache"
	"TourCast/internal/services/aggregation"
	applogger "TourCast/pkg/logger"
)

// SeriesUseCase loads rows from the warehouse and aggregates them.
type SeriesUseCase struct {
	source  domrepo.EventSource
	agg     *aggregation.Aggregator
	cache   *svccache.SeriesCache
	metrics domrepo.Metrics
	l       *applogger.Logger
	// loads collapses concurrent misses for the same key into one query
	loads singleflight.Group
}

func NewSeriesUseCase(source domrepo.EventSource, agg *aggregation.Aggregator, cache *svccache.SeriesCache, metrics domrepo.Metrics) *SeriesUseCase {
	return &SeriesUseCase{source: source, agg: agg, cache: cache, metrics: metrics, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (uc *SeriesUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		uc.l = l
	}
}

type GetSeriesParams struct {
	Filter      models.Filter
	Granularity models.Granularity
	Metric      models.Metric
}

type SeriesResult struct {
	Filter         models.Filter            `json:"filter"`
	Granularity    models.Granularity       `json:"granularity"`
	Metric         models.Metric            `json:"metric"`
	Count          int                      `json:"count"`
	SkippedRecords int                      `json:"skipped_records"`
	Points         []models.TimeSeriesPoint `json:"points"`
}

// GetSeries returns the aggregated series, from cache when possible.
func (uc *SeriesUseCase) GetSeries(ctx context.Context, p GetSeriesParams) (*SeriesResult, error) {
	if p.Granularity == "" {
		p.Granularity = models.DefaultGranularity()
	}
	if p.Metric == "" {
		p.Metric = models.MetricVisitors
	}
	if !models.IsValidGranularity(p.Granularity) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidGranularity, p.Granularity)
	}
	if !p.Metric.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidMetric, p.Metric)
	}

	key := svccache.SeriesKey(p.Filter, p.Granularity, p.Metric)
	if uc.cache != nil {
		var cached SeriesResult
		if uc.cache.Lookup(ctx, svccache.NSSeries, key, &cached) {
			return &cached, nil
		}
	}

	var gen uint64
	if uc.cache != nil {
		gen = uc.cache.Generation()
	}
	v, err, _ := uc.loads.Do(key+"@"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return uc.load(ctx, p, key, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SeriesResult), nil
}

// load queries and aggregates one series and caches the result.
func (uc *SeriesUseCase) load(ctx context.Context, p GetSeriesParams, key string, gen uint64) (*SeriesResult, error) {
	start := time.Now()
	rows, err := uc.source.Query(ctx, p.Filter)
	if err != nil {
		uc.metrics.RecordError("query")
		return nil, fmt.Errorf("query events: %w", err)
	}

	res, err := uc.agg.Aggregate(rows, p.Filter, p.Granularity, p.Metric)
	if err != nil {
		uc.metrics.RecordError("aggregate")
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	uc.metrics.RecordSkippedRecords(res.Skipped)
	uc.metrics.RecordLatency("series", time.Since(start).Seconds())
	if res.Skipped > 0 {
		uc.l.Warn("invalid rows skipped",
			applogger.String("filter", p.Filter.CanonicalKey()),
			applogger.Int("skipped", res.Skipped),
			applogger.Int("rows", len(rows)),
		)
	}

	out := &SeriesResult{
		Filter:         p.Filter,
		Granularity:    p.Granularity,
		Metric:         p.Metric,
		Count:          len(res.Points),
		SkippedRecords: res.Skipped,
		Points:         res.Points,
	}
	if uc.cache != nil {
		uc.cache.StoreIfCurrent(ctx, key, out, gen)
	}
	return out, nil
}
