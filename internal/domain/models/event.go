package models

import "time"

// Metric selects which numeric column of an event is aggregated.
type Metric string

const (
	MetricVisitors   Metric = "visitors"
	MetricRevenue    Metric = "revenue"
	MetricEmployment Metric = "employment"
)

// IsValid reports whether m is a supported metric.
func (m Metric) IsValid() bool {
	switch m {
	case MetricVisitors, MetricRevenue, MetricEmployment:
		return true
	default:
		return false
	}
}

// EventRow is a raw warehouse row before validation. Dates arrive as text and
// metrics may be NULL; turning a row into an EventRecord is the aggregator's job.
type EventRow struct {
	Date            string
	State           string
	Region          string
	Event           string
	ArtForm         string
	TourismLevel    string
	Visitors        *float64
	RevenueINR      *float64
	LocalEmployment *float64
}

// Value returns the raw value for metric m, nil when the column was NULL.
func (r EventRow) Value(m Metric) *float64 {
	switch m {
	case MetricRevenue:
		return r.RevenueINR
	case MetricEmployment:
		return r.LocalEmployment
	default:
		return r.Visitors
	}
}

// EventRecord is a validated cultural-tourism observation.
type EventRecord struct {
	Date            time.Time `json:"date"`
	State           string    `json:"state"`
	Region          string    `json:"region"`
	Event           string    `json:"event,omitempty"`
	ArtForm         string    `json:"art_form,omitempty"`
	TourismLevel    string    `json:"tourism_level,omitempty"`
	Visitors        float64   `json:"visitors"`
	RevenueINR      float64   `json:"revenue_inr"`
	LocalEmployment float64   `json:"local_employment"`
}

// Row converts a record back into its warehouse row shape.
func (r EventRecord) Row() EventRow {
	visitors, revenue, employment := r.Visitors, r.RevenueINR, r.LocalEmployment
	return EventRow{
		Date:            r.Date.UTC().Format("2006-01-02"),
		State:           r.State,
		Region:          r.Region,
		Event:           r.Event,
		ArtForm:         r.ArtForm,
		TourismLevel:    r.TourismLevel,
		Visitors:        &visitors,
		RevenueINR:      &revenue,
		LocalEmployment: &employment,
	}
}

// EventStats mirrors the warehouse summary query used by the dashboard header.
type EventStats struct {
	TotalEvents         int64   `json:"total_events"`
	TotalVisitors       float64 `json:"total_visitors"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalEmployment     float64 `json:"total_employment"`
	AvgVisitorsPerEvent float64 `json:"avg_visitors_per_event"`
	AvgRevenuePerEvent  float64 `json:"avg_revenue_per_event"`
}
