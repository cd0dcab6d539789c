package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"TourCast/internal/domain/models"
)

type nopMetrics struct {
	mu       sync.Mutex
	outcomes []string
	ingested int
}

func (m *nopMetrics) RecordRecordsIngested(_ string, n int) {
	m.mu.Lock()
	m.ingested += n
	m.mu.Unlock()
}
func (m *nopMetrics) RecordSkippedRecords(int) {}
func (m *nopMetrics) RecordCacheLookup(string, bool) {}
func (m *nopMetrics) RecordError(string) {}
func (m *nopMetrics) RecordLatency(string, float64) {}
func (m *nopMetrics) RecordForecastOutcome(s string) {
	m.mu.Lock()
	m.outcomes = append(m.outcomes, s)
	m.mu.Unlock()
}

// fakeStore is an in-memory EventStore.
type fakeStore struct {
	mu       sync.Mutex
	rows     []models.EventRow
	stored   []models.EventRecord
	queries  int
	batches  int
	delay    time.Duration
	queryErr error
	statsErr error
	storeErr error
}

func (s *fakeStore) Query(_ context.Context, f models.Filter) ([]models.EventRow, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []models.EventRow
	for _, r := range s.rows {
		if f.MatchesCategorical(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) Distinct(_ context.Context, d models.Dimension) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, r := range s.rows {
		v := r.State
		if d == models.DimRegion {
			v = r.Region
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeStore) Stats(_ context.Context, _ models.Filter) (models.EventStats, error) {
	if s.statsErr != nil {
		return models.EventStats{}, s.statsErr
	}
	return models.EventStats{TotalEvents: int64(len(s.rows))}, nil
}

func (s *fakeStore) Init(context.Context) error { return nil }
func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) StoreBatch(_ context.Context, records []models.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.batches++
	s.stored = append(s.stored, records...)
	return nil
}

type fakePublisher struct {
	batches [][]models.EventRecord
	closed  bool
}

func (p *fakePublisher) PublishBatch(_ context.Context, records []models.EventRecord) error {
	p.batches = append(p.batches, records)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

type countingEngine struct {
	mu    sync.Mutex
	calls int
	err   error
	onFit func()
}

func (e *countingEngine) Name() string { return "counting" }

func (e *countingEngine) Fit(_ context.Context, series []models.TimeSeriesPoint, _ models.Granularity, horizon int) ([]models.ForecastPoint, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.onFit != nil {
		e.onFit()
	}
	if e.err != nil {
		return nil, e.err
	}
	var out []models.ForecastPoint
	for _, p := range series {
		out = append(out, models.ForecastPoint{Timestamp: p.Timestamp, PointEstimate: p.Value, LowerBound: p.Value, UpperBound: p.Value})
	}
	last := series[len(series)-1]
	for h := 1; h <= horizon; h++ {
		v := last.Value * 1.1
		out = append(out, models.ForecastPoint{Timestamp: last.Timestamp.AddDate(0, h, 0), PointEstimate: v, LowerBound: v, UpperBound: v})
	}
	return out, nil
}

var errBoom = errors.New("boom")

func f64(v float64) *float64 { return &v }

// monthlyRows returns one row per month for state, starting Jan 2020.
func monthlyRows(state string, months int, value float64) []models.EventRow {
	start := time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC)
	out := make([]models.EventRow, 0, months)
	for i := 0; i < months; i++ {
		out = append(out, models.EventRow{
			Date:            start.AddDate(0, i, 0).Format("2006-01-02"),
			State:           state,
			Region:          "South",
			Visitors:        f64(value),
			RevenueINR:      f64(value * 100),
			LocalEmployment: f64(1),
		})
	}
	return out
}
