package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TourCast/internal/domain/models"
	domrepo "TourCast/internal/domain/repository"
)

// DashboardUseCase assembles the series, stats and forecast for one filter.
type DashboardUseCase struct {
	source   domrepo.EventSource
	series   *SeriesUseCase
	forecast *ForecastUseCase
	timeout  time.Duration
}

func NewDashboardUseCase(source domrepo.EventSource, series *SeriesUseCase, forecast *ForecastUseCase) *DashboardUseCase {
	return &DashboardUseCase{source: source, series: series, forecast: forecast, timeout: 30 * time.Second}
}

type DashboardParams struct {
	Filter      models.Filter
	Granularity models.Granularity
	Horizon     int
}

type Dashboard struct {
	Filter      models.Filter           `json:"filter"`
	Granularity models.Granularity      `json:"granularity"`
	Timestamp   time.Time               `json:"timestamp"`
	Series      *SeriesResult           `json:"series,omitempty"`
	Stats       *models.EventStats      `json:"stats,omitempty"`
	Forecast    *models.ForecastOutcome `json:"forecast,omitempty"`
	Errors      map[string]string       `json:"errors,omitempty"`
}

// Stats returns warehouse summary statistics for f.
func (uc *DashboardUseCase) Stats(ctx context.Context, f models.Filter) (*models.EventStats, error) {
	st, err := uc.source.Stats(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}

// Dimension lists the values a filter dimension can take.
func (uc *DashboardUseCase) Dimension(ctx context.Context, d models.Dimension) ([]string, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDimension, d)
	}
	vals, err := uc.source.Distinct(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("distinct: %w", err)
	}
	if vals == nil {
		vals = []string{}
	}
	return vals, nil
}

type EventsParams struct {
	Filter models.Filter
	Limit  int
	Offset int
}

// EventPage is one page of validated event records.
type EventPage struct {
	Filter         models.Filter        `json:"filter"`
	Total          int                  `json:"total"`
	Limit          int                  `json:"limit"`
	Offset         int                  `json:"offset"`
	SkippedRecords int                  `json:"skipped_records"`
	Records        []models.EventRecord `json:"records"`
}

// Events lists the validated records matching a filter, ordered by date.
func (uc *DashboardUseCase) Events(ctx context.Context, p EventsParams) (*EventPage, error) {
	if p.Limit < 1 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	rows, err := uc.source.Query(ctx, p.Filter)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	recs, skipped, err := uc.series.agg.Records(rows, p.Filter)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	page := &EventPage{
		Filter:         p.Filter,
		Total:          len(recs),
		Limit:          p.Limit,
		Offset:         p.Offset,
		SkippedRecords: skipped,
		Records:        []models.EventRecord{},
	}
	if p.Offset < len(recs) {
		end := min(p.Offset+p.Limit, len(recs))
		page.Records = recs[p.Offset:end]
	}
	return page, nil
}

// Get fetches the three parts concurrently. A failing part is reported in
// Errors and does not fail the others.
func (uc *DashboardUseCase) Get(ctx context.Context, p DashboardParams) (*Dashboard, error) {
	if p.Horizon < 1 {
		p.Horizon = uc.forecast.DefaultHorizon()
	}
	if p.Granularity == "" {
		p.Granularity = models.DefaultGranularity()
	}

	// Overall timeout
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &Dashboard{
		Filter:      p.Filter,
		Granularity: p.Granularity,
		Timestamp:   time.Now().UTC(),
		Errors:      map[string]string{},
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.series.GetSeries(ctx, GetSeriesParams{Filter: p.Filter, Granularity: p.Granularity, Metric: models.MetricVisitors})
		ch <- item{"series", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.Stats(ctx, p.Filter)
		ch <- item{"stats", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.forecast.Forecast(ctx, ForecastParams{Filter: p.Filter, Granularity: p.Granularity, Horizon: p.Horizon})
		ch <- item{"forecast", v, err}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch it.name {
		case "series":
			res.Series = it.val.(*SeriesResult)
		case "stats":
			res.Stats = it.val.(*models.EventStats)
		case "forecast":
			res.Forecast = it.val.(*models.ForecastOutcome)
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}
