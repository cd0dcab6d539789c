package service

import (
	"context"

	"TourCast/internal/domain/models"
)

// ForecastEngine fits a model to a series and evaluates it at every
// historical timestamp plus horizon future periods.
type ForecastEngine interface {
	Name() string
	Fit(ctx context.Context, series []models.TimeSeriesPoint, g models.Granularity, horizon int) ([]models.ForecastPoint, error)
}
