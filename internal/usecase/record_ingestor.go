package usecase

import (
	"context"
	"fmt"
	"time"

	"TourCast/internal/domain/models"
	drepo "TourCast/internal/domain/repository"
	svccache "TourCast/internal/service/cache"
)

const (
	BackendWarehouse = "warehouse"
	BackendKafka     = "kafka"
)

// RecordIngestor routes record batches to the configured backend.
type RecordIngestor struct {
	pub     drepo.Publisher
	store   drepo.EventStore
	cache   *svccache.SeriesCache
	metrics drepo.Metrics
	backend string
	batchSz int
}

// NewRecordIngestor creates a new RecordIngestor instance. pub may be nil
// when the backend is the warehouse.
func NewRecordIngestor(
	pub drepo.Publisher,
	store drepo.EventStore,
	cache *svccache.SeriesCache,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
) *RecordIngestor {
	if batchSz <= 0 {
		batchSz = 500
	}
	return &RecordIngestor{
		pub:     pub,
		store:   store,
		cache:   cache,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
	}
}

// Backend returns the configured backend name.
func (p *RecordIngestor) Backend() string { return p.backend }

// Ingest sends records in chunks of the batch size. onChunk, if not nil, is
// called with the number of records written after each chunk.
func (p *RecordIngestor) Ingest(ctx context.Context, records []models.EventRecord, onChunk func(n int)) error {
	if len(records) == 0 {
		return nil
	}
	for start := 0; start < len(records); start += p.batchSz {
		end := start + p.batchSz
		if end > len(records) {
			end = len(records)
		}
		if err := p.processBatch(ctx, records[start:end]); err != nil {
			return err
		}
		if onChunk != nil {
			onChunk(end - start)
		}
	}

	// consumers bust their own caches after storing published records
	if p.backend == BackendWarehouse && p.cache != nil {
		if err := p.cache.Bust(ctx); err != nil {
			p.metrics.RecordError("cache_bust")
			return fmt.Errorf("bust cache: %w", err)
		}
	}
	return nil
}

func (p *RecordIngestor) processBatch(ctx context.Context, records []models.EventRecord) error {
	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		if p.pub == nil {
			err = fmt.Errorf("kafka publisher not configured")
			break
		}
		err = p.pub.PublishBatch(ctx, records)
	case BackendWarehouse:
		err = p.store.StoreBatch(ctx, records)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("ingest_batch")
		return fmt.Errorf("ingest batch: %w", err)
	}

	p.metrics.RecordRecordsIngested(p.backend, len(records))
	p.metrics.RecordLatency("ingest_batch", time.Since(start).Seconds())
	return nil
}

// Close closes the publisher if present. The store is owned by the caller.
func (p *RecordIngestor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
