package models

import "time"

// TimeSeriesPoint is one bucket of an aggregated series.
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ForecastPoint is a fitted (in-sample) or predicted (future) value with its
// uncertainty band. LowerBound <= PointEstimate <= UpperBound always holds.
type ForecastPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	PointEstimate float64   `json:"point_estimate"`
	LowerBound    float64   `json:"lower_bound"`
	UpperBound    float64   `json:"upper_bound"`
}

// Forecast is the output of a single forecaster run.
type Forecast struct {
	Engine        string          `json:"engine"`
	Granularity   Granularity     `json:"granularity"`
	Horizon       int             `json:"horizon"`
	HistoryEnd    time.Time       `json:"history_end"`
	LowConfidence bool            `json:"low_confidence"`
	Points        []ForecastPoint `json:"points"`
}

// Future returns the points strictly after the last historical timestamp.
func (f *Forecast) Future() []ForecastPoint {
	for i, p := range f.Points {
		if p.Timestamp.After(f.HistoryEnd) {
			return f.Points[i:]
		}
	}
	return nil
}

// ForecastSummary holds statistics derived from the future part of a forecast.
// GrowthRate is nil when the historical baseline is zero.
type ForecastSummary struct {
	FutureTotal      float64  `json:"future_total"`
	AverageDaily     float64  `json:"average_daily"`
	GrowthRate       *float64 `json:"growth_rate"`
	GrowthRateStatus string   `json:"growth_rate_status"`
}

const (
	GrowthRateOK        = "ok"
	GrowthRateUndefined = "undefined"
)

// OutcomeStatus tells the presentation layer which of the pipeline results it got.
type OutcomeStatus string

const (
	OutcomeOK                  OutcomeStatus = "ok"
	OutcomeInsufficientData    OutcomeStatus = "insufficient_data"
	OutcomeForecastUnavailable OutcomeStatus = "forecast_unavailable"
)

// ForecastOutcome is what the forecast use case hands to the API.
type ForecastOutcome struct {
	RunID          string            `json:"run_id"`
	Status         OutcomeStatus     `json:"status"`
	Message        string            `json:"message,omitempty"`
	Filter         Filter            `json:"filter"`
	Granularity    Granularity       `json:"granularity"`
	Horizon        int               `json:"horizon"`
	Series         []TimeSeriesPoint `json:"series"`
	SkippedRecords int               `json:"skipped_records"`
	Forecast       *Forecast         `json:"forecast,omitempty"`
	Summary        *ForecastSummary  `json:"summary,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at"`
}
