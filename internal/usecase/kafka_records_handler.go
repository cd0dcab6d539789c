package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"TourCast/internal/domain/models"
	domrepo "TourCast/internal/domain/repository"
	svccache "TourCast/internal/service/cache"
	pkgkafka "TourCast/pkg/kafka"
	applogger "TourCast/pkg/logger"
	"TourCast/pkg/util"
)

// KafkaRecordsHandler consumes published records, writes them to the
// warehouse and busts the series cache.
type KafkaRecordsHandler struct {
	topic   string
	store   domrepo.EventStore
	cache   *svccache.SeriesCache
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewKafkaRecordsHandler(topic string, store domrepo.EventStore, cache *svccache.SeriesCache, metrics domrepo.Metrics) *KafkaRecordsHandler {
	return &KafkaRecordsHandler{topic: topic, store: store, cache: cache, metrics: metrics, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (h *KafkaRecordsHandler) SetLogger(l *applogger.Logger) {
	if l != nil {
		h.l = l
	}
}

func (h *KafkaRecordsHandler) Topic() string { return h.topic }

// recordWire accepts both RFC3339 and plain "2006-01-02" dates.
type recordWire struct {
	Date            string  `json:"date"`
	State           string  `json:"state"`
	Region          string  `json:"region"`
	Event           string  `json:"event"`
	ArtForm         string  `json:"art_form"`
	TourismLevel    string  `json:"tourism_level"`
	Visitors        float64 `json:"visitors"`
	RevenueINR      float64 `json:"revenue_inr"`
	LocalEmployment float64 `json:"local_employment"`
}

func (w recordWire) record() (models.EventRecord, error) {
	day, ok := util.ParseDate(w.Date)
	if !ok {
		return models.EventRecord{}, fmt.Errorf("unparseable date %q", w.Date)
	}
	if w.State == "" {
		return models.EventRecord{}, fmt.Errorf("state is required")
	}
	for name, v := range map[string]float64{"visitors": w.Visitors, "revenue_inr": w.RevenueINR, "local_employment": w.LocalEmployment} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return models.EventRecord{}, fmt.Errorf("invalid %s %g", name, v)
		}
	}
	return models.EventRecord{
		Date:            day,
		State:           w.State,
		Region:          w.Region,
		Event:           w.Event,
		ArtForm:         w.ArtForm,
		TourismLevel:    w.TourismLevel,
		Visitors:        w.Visitors,
		RevenueINR:      w.RevenueINR,
		LocalEmployment: w.LocalEmployment,
	}, nil
}

// decodeRecords accepts a JSON array of records or a single record.
func decodeRecords(b []byte) ([]models.EventRecord, error) {
	b = bytes.TrimSpace(b)
	var wires []recordWire
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &wires); err != nil {
			return nil, err
		}
	} else {
		var w recordWire
		if err := json.Unmarshal(b, &w); err != nil {
			return nil, err
		}
		wires = []recordWire{w}
	}
	out := make([]models.EventRecord, 0, len(wires))
	for i, w := range wires {
		r, err := w.record()
		if err != nil {
			return nil, &models.InvalidRecordError{Index: i, Reason: err.Error()}
		}
		out = append(out, r)
	}
	return out, nil
}

func (h *KafkaRecordsHandler) Handle(ctx context.Context, b []byte) error {
	records, err := decodeRecords(b)
	if err != nil {
		h.metrics.RecordError("consumer_decode")
		return fmt.Errorf("decode records: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	err = h.store.StoreBatch(ctx, records)
	h.metrics.RecordLatency("consumer_store", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordRecordsIngested(BackendWarehouse, len(records))

	if h.cache != nil {
		if err := h.cache.Bust(ctx); err != nil {
			// stored rows must not be redelivered for a cache failure
			h.l.Warn("cache bust after consume failed", applogger.Error(err))
			h.metrics.RecordError("cache_bust")
		}
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaRecordsHandler)(nil)
