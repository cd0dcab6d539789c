package repository

import (
	"context"

	"TourCast/internal/domain/models"
)

// EventSource is the read side of the warehouse.
type EventSource interface {
	Query(ctx context.Context, f models.Filter) ([]models.EventRow, error)
	Distinct(ctx context.Context, d models.Dimension) ([]string, error)
	Stats(ctx context.Context, f models.Filter) (models.EventStats, error)
}

// EventStore adds the write side and lifecycle.
type EventStore interface {
	EventSource
	Init(ctx context.Context) error // ensure tables
	StoreBatch(ctx context.Context, records []models.EventRecord) error
	Health(ctx context.Context) error // ping
	Close() error
}

// Publisher sends records to the message bus.
type Publisher interface {
	PublishBatch(ctx context.Context, records []models.EventRecord) error
	Close() error
}

type Metrics interface {
	RecordRecordsIngested(backend string, n int)
	RecordSkippedRecords(n int)
	RecordForecastOutcome(status string)
	RecordCacheLookup(cache string, hit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
