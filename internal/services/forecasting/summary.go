package forecasting

import (
	"fmt"

	"TourCast/internal/domain/models"
)

// GrowthRate is the percentage change from base to last. A zero base has no
// defined rate.
func GrowthRate(base, last float64) (float64, error) {
	if base == 0 {
		return 0, models.ErrUndefinedGrowthRate
	}
	return (last - base) / base * 100, nil
}

// Summarize derives totals and growth from the future part of fc relative
// to the last historical value. An undefined growth rate is reported through
// GrowthRateStatus, not as an error.
func Summarize(series []models.TimeSeriesPoint, fc *models.Forecast) (models.ForecastSummary, error) {
	var s models.ForecastSummary
	if len(series) == 0 {
		return s, &models.InsufficientDataError{Have: 0, Need: 1}
	}
	future := fc.Future()
	if len(future) == 0 {
		return s, fmt.Errorf("%w: forecast has no future points", models.ErrInvalidHorizon)
	}

	for _, p := range future {
		s.FutureTotal += p.PointEstimate
	}
	s.AverageDaily = s.FutureTotal / float64(len(future))

	rate, err := GrowthRate(series[len(series)-1].Value, future[len(future)-1].PointEstimate)
	if err != nil {
		s.GrowthRateStatus = models.GrowthRateUndefined
		return s, nil
	}
	s.GrowthRate = &rate
	s.GrowthRateStatus = models.GrowthRateOK
	return s, nil
}
