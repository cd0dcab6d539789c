package forecasting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourCast/internal/domain/models"
)

func TestGrowthRate(t *testing.T) {
	r, err := GrowthRate(1000, 1100)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, r, 1e-9)

	r, err = GrowthRate(200, 150)
	require.NoError(t, err)
	assert.InDelta(t, -25.0, r, 1e-9)

	_, err = GrowthRate(0, 50)
	assert.ErrorIs(t, err, models.ErrUndefinedGrowthRate)
}

func summaryFixture(lastHist float64, future ...float64) ([]models.TimeSeriesPoint, *models.Forecast) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := []models.TimeSeriesPoint{
		{Timestamp: base, Value: 10},
		{Timestamp: base.AddDate(0, 1, 0), Value: lastHist},
	}
	fc := &models.Forecast{HistoryEnd: series[1].Timestamp}
	for _, p := range series {
		fc.Points = append(fc.Points, models.ForecastPoint{Timestamp: p.Timestamp, PointEstimate: p.Value})
	}
	for i, v := range future {
		fc.Points = append(fc.Points, models.ForecastPoint{Timestamp: base.AddDate(0, 2+i, 0), PointEstimate: v})
	}
	return series, fc
}

func TestSummarize(t *testing.T) {
	series, fc := summaryFixture(1000, 1050, 1100)
	s, err := Summarize(series, fc)
	require.NoError(t, err)
	assert.Equal(t, 2150.0, s.FutureTotal)
	assert.Equal(t, 1075.0, s.AverageDaily)
	require.NotNil(t, s.GrowthRate)
	assert.InDelta(t, 10.0, *s.GrowthRate, 1e-9)
	assert.Equal(t, models.GrowthRateOK, s.GrowthRateStatus)
}

func TestSummarizeZeroBaseline(t *testing.T) {
	series, fc := summaryFixture(0, 5, 7)
	s, err := Summarize(series, fc)
	require.NoError(t, err)
	assert.Nil(t, s.GrowthRate)
	assert.Equal(t, models.GrowthRateUndefined, s.GrowthRateStatus)
	assert.Equal(t, 12.0, s.FutureTotal)
}

func TestSummarizeWithoutFuture(t *testing.T) {
	series, fc := summaryFixture(5)
	_, err := Summarize(series, fc)
	assert.ErrorIs(t, err, models.ErrInvalidHorizon)
	_, err = Summarize(nil, fc)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}
