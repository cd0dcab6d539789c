package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourCast/internal/domain/models"
	"TourCast/internal/usecase"
)

type stubSource struct {
	mu       sync.Mutex
	inFlight int32
	peak     int32
	failOn   string
}

func (s *stubSource) Forecast(_ context.Context, p usecase.ForecastParams) (*models.ForecastOutcome, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	s.mu.Lock()
	if n > s.peak {
		s.peak = n
	}
	s.mu.Unlock()
	time.Sleep(5 * time.Millisecond)

	if *p.Filter.State == s.failOn {
		return nil, errors.New("warehouse timeout")
	}
	return &models.ForecastOutcome{Status: models.OutcomeOK, Filter: p.Filter, Horizon: p.Horizon}, nil
}

func TestForecastAllKeepsOrderAndLimit(t *testing.T) {
	src := &stubSource{}
	states := []string{"Assam", "Goa", "Kerala", "Punjab", "Sikkim", "Tripura"}
	base := models.Filter{Region: models.StringPtr("South")}

	outs, err := forecastAll(context.Background(), src, base, states, models.Monthly, 6, 2)
	require.NoError(t, err)
	require.Len(t, outs, len(states))
	for i, s := range states {
		assert.Equal(t, s, *outs[i].Filter.State)
		assert.Equal(t, "South", *outs[i].Filter.Region)
	}
	assert.LessOrEqual(t, src.peak, int32(2))
	assert.Nil(t, base.State, "base filter untouched")
}

func TestForecastAllStopsOnError(t *testing.T) {
	src := &stubSource{failOn: "Goa"}
	_, err := forecastAll(context.Background(), src, models.Filter{}, []string{"Assam", "Goa"}, models.Monthly, 6, 0)
	assert.ErrorContains(t, err, "state Goa")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"horizon": 6}))
	assert.Equal(t, "{\n  \"horizon\": 6\n}\n", buf.String())
}

func TestOutcomeRows(t *testing.T) {
	growth := 12.5
	outs := []*models.ForecastOutcome{
		{
			Status:  models.OutcomeOK,
			Filter:  models.Filter{State: models.StringPtr("Goa")},
			Horizon: 6,
			Series:  make([]models.TimeSeriesPoint, 30),
			Summary: &models.ForecastSummary{FutureTotal: 6600, AverageDaily: 36.06, GrowthRate: &growth, GrowthRateStatus: models.GrowthRateOK},
		},
		nil,
		{Status: models.OutcomeInsufficientData, Horizon: 6, Series: make([]models.TimeSeriesPoint, 5)},
	}

	rows := outcomeRows(outs)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Goa", "All", "ok", "6", "30", "0", "6600", "36.1", "12.50%"}, rows[0])
	assert.Equal(t, []string{"All", "All", "insufficient_data", "6", "5", "0", "-", "-", "-"}, rows[1])
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	out := &models.ForecastOutcome{Status: models.OutcomeForecastUnavailable, Horizon: 3}
	require.NoError(t, writeTable(&buf, []*models.ForecastOutcome{out}))
	assert.Contains(t, buf.String(), "forecast_unavailable")
}
