package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	recordsIngested *prometheus.CounterVec
	skippedRecords  prometheus.Counter
	outcomes        *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

var (
	defaultRecorder *Recorder
	defaultOnce     sync.Once
)

// New returns the process-wide recorder registered on the default registry.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		recordsIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourcast_records_ingested_total",
				Help: "Total number of event records sent to an ingest backend",
			},
			[]string{"backend"},
		),
		skippedRecords: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tourcast_records_skipped_total",
				Help: "Invalid rows skipped during aggregation",
			},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourcast_forecast_outcomes_total",
				Help: "Forecast pipeline outcomes by status",
			},
			[]string{"status"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourcast_cache_lookups_total",
				Help: "Series and forecast cache lookups",
			},
			[]string{"cache", "hit"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tourcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tourcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRecordsIngested counts records handed to backend.
func (r *Recorder) RecordRecordsIngested(backend string, n int) {
	r.recordsIngested.WithLabelValues(backend).Add(float64(n))
}

// RecordSkippedRecords counts rows rejected by the aggregator.
func (r *Recorder) RecordSkippedRecords(n int) {
	if n > 0 {
		r.skippedRecords.Add(float64(n))
	}
}

// RecordForecastOutcome counts a pipeline outcome.
func (r *Recorder) RecordForecastOutcome(status string) {
	r.outcomes.WithLabelValues(status).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (r *Recorder) RecordCacheLookup(cache string, hit bool) {
	r.cacheLookups.WithLabelValues(cache, strconv.FormatBool(hit)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
