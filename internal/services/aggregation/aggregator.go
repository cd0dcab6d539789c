package aggregation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"TourCast/internal/domain/models"
	"TourCast/pkg/util"
)

// Policy decides what happens to a row that fails validation.
type Policy string

const (
	// PolicySkip drops invalid rows and reports how many were dropped.
	PolicySkip Policy = "skip"
	// PolicyAbort fails the whole aggregation on the first invalid row.
	PolicyAbort Policy = "abort"
)

// Option configures Aggregator.
type Option func(*Aggregator)

// WithPolicy sets the invalid-row policy. Unknown values fall back to skip.
func WithPolicy(p Policy) Option {
	return func(a *Aggregator) {
		if p == PolicyAbort {
			a.policy = PolicyAbort
		} else {
			a.policy = PolicySkip
		}
	}
}

// Aggregator turns raw event rows into a bucketed, ascending time series.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	policy Policy
}

// New creates an aggregator with the skip policy unless overridden.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{policy: PolicySkip}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Policy returns the configured invalid-row policy.
func (a *Aggregator) Policy() Policy { return a.policy }

// Result is the aggregated series plus the number of rejected rows.
type Result struct {
	Points  []models.TimeSeriesPoint
	Skipped int
}

// Aggregate filters rows, validates the survivors, buckets them by
// granularity and sums metric per bucket. Rows excluded by a categorical
// filter are never validated; date filters apply after validation since
// they need a parsed date. Empty buckets are not emitted.
func (a *Aggregator) Aggregate(rows []models.EventRow, f models.Filter, g models.Granularity, m models.Metric) (Result, error) {
	if !models.IsValidGranularity(g) {
		return Result{}, fmt.Errorf("%w: %q", models.ErrInvalidGranularity, g)
	}
	if !m.IsValid() {
		return Result{}, fmt.Errorf("%w: %q", models.ErrInvalidMetric, m)
	}

	sums := make(map[time.Time]float64)
	skipped := 0
	for i, row := range rows {
		if !f.MatchesCategorical(row) {
			continue
		}

		day, value, reason := validate(row, m)
		if reason != "" {
			if a.policy == PolicyAbort {
				return Result{}, &models.InvalidRecordError{Index: i, Reason: reason}
			}
			skipped++
			continue
		}

		if !f.MatchesDate(day.Year(), util.Quarter(day), int(day.Month())) {
			continue
		}

		sums[util.BucketStart(day, string(g))] += value
	}

	points := make([]models.TimeSeriesPoint, 0, len(sums))
	for ts, v := range sums {
		points = append(points, models.TimeSeriesPoint{Timestamp: ts, Value: v})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	return Result{Points: points, Skipped: skipped}, nil
}

// validate returns the parsed day and metric value, or a non-empty reason.
func validate(row models.EventRow, m models.Metric) (time.Time, float64, string) {
	day, ok := util.ParseDate(row.Date)
	if !ok {
		return time.Time{}, 0, fmt.Sprintf("unparseable date %q", row.Date)
	}
	v := row.Value(m)
	switch {
	case v == nil:
		return time.Time{}, 0, fmt.Sprintf("missing %s", m)
	case math.IsNaN(*v) || math.IsInf(*v, 0):
		return time.Time{}, 0, fmt.Sprintf("non-finite %s", m)
	case *v < 0:
		return time.Time{}, 0, fmt.Sprintf("negative %s %g", m, *v)
	}
	return day, *v, ""
}

// Records validates the rows matching f and returns them ordered by date,
// then state and event. A row is valid only when its date parses and all
// three metrics are present, finite and non-negative. The invalid-row policy
// applies as in Aggregate.
func (a *Aggregator) Records(rows []models.EventRow, f models.Filter) ([]models.EventRecord, int, error) {
	out := make([]models.EventRecord, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		if !f.MatchesCategorical(row) {
			continue
		}

		var (
			day    time.Time
			values [3]float64
			reason string
		)
		for k, m := range []models.Metric{models.MetricVisitors, models.MetricRevenue, models.MetricEmployment} {
			if day, values[k], reason = validate(row, m); reason != "" {
				break
			}
		}
		if reason != "" {
			if a.policy == PolicyAbort {
				return nil, 0, &models.InvalidRecordError{Index: i, Reason: reason}
			}
			skipped++
			continue
		}

		if !f.MatchesDate(day.Year(), util.Quarter(day), int(day.Month())) {
			continue
		}

		out = append(out, models.EventRecord{
			Date:            day,
			State:           row.State,
			Region:          row.Region,
			Event:           row.Event,
			ArtForm:         row.ArtForm,
			TourismLevel:    row.TourismLevel,
			Visitors:        values[0],
			RevenueINR:      values[1],
			LocalEmployment: values[2],
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].Event < out[j].Event
	})
	return out, skipped, nil
}
