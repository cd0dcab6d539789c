package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordRecordsIngested("warehouse", 5)
	r.RecordRecordsIngested("warehouse", 2)
	r.RecordSkippedRecords(3)
	r.RecordSkippedRecords(0)
	r.RecordForecastOutcome("ok")
	r.RecordCacheLookup("series", true)
	r.RecordCacheLookup("series", false)
	r.RecordCacheLookup("series", false)
	r.RecordError("store")
	r.RecordLatency("forecast", 0.2)

	assert.Equal(t, 7.0, testutil.ToFloat64(r.recordsIngested.WithLabelValues("warehouse")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.skippedRecords))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("series", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("series", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("store")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestNewIsSingleton(t *testing.T) {
	assert.Same(t, New(), New())
}
