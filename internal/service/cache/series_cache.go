package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"TourCast/internal/domain/models"
	domrepo "TourCast/internal/domain/repository"
	pkgcache "TourCast/pkg/cache"
	applogger "TourCast/pkg/logger"
)

// Namespace separates cached series from cached forecasts.
type Namespace string

const (
	NSSeries   Namespace = "series"
	NSForecast Namespace = "forecast"
)

// SeriesKey identifies an aggregated series.
func SeriesKey(f models.Filter, g models.Granularity, m models.Metric) string {
	canonical := fmt.Sprintf("%s|granularity=%s|metric=%s", f.CanonicalKey(), g, m)
	return pkgcache.GenerateKey(string(NSSeries), pkgcache.HashKey(canonical))
}

// ForecastKey identifies a forecast outcome. Forecasts are always of visitors.
func ForecastKey(f models.Filter, g models.Granularity, horizon int) string {
	canonical := fmt.Sprintf("%s|granularity=%s|metric=%s|horizon=%d", f.CanonicalKey(), g, models.MetricVisitors, horizon)
	return pkgcache.GenerateKey(string(NSForecast), pkgcache.HashKey(canonical))
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// NamespaceStats counts lookups in one namespace.
type NamespaceStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Stats is the inspectable state of the cache.
type Stats struct {
	TTL      string         `json:"ttl"`
	Series   NamespaceStats `json:"series"`
	Forecast NamespaceStats `json:"forecast"`
}

// SeriesCache stores JSON-encoded series and forecast outcomes with a fixed
// TTL. Backend errors are logged and treated as misses so a cache outage
// never fails a request.
type SeriesCache struct {
	svc      pkgcache.Service
	ttl      time.Duration
	series   counters
	forecast counters
	metrics  domrepo.Metrics
	l        *applogger.Logger

	// mu orders StoreIfCurrent against Bust; gen counts busts.
	mu  sync.RWMutex
	gen atomic.Uint64
}

// NewSeriesCache wraps a cache service.
func NewSeriesCache(svc pkgcache.Service, ttl time.Duration) *SeriesCache {
	return &SeriesCache{svc: svc, ttl: ttl, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (c *SeriesCache) SetLogger(l *applogger.Logger) {
	if l != nil {
		c.l = l
	}
}

// SetMetrics injects the metrics recorder.
func (c *SeriesCache) SetMetrics(m domrepo.Metrics) { c.metrics = m }

func (c *SeriesCache) counters(ns Namespace) *counters {
	if ns == NSForecast {
		return &c.forecast
	}
	return &c.series
}

// Lookup decodes the entry at key into dest and reports whether it was found.
func (c *SeriesCache) Lookup(ctx context.Context, ns Namespace, key string, dest interface{}) bool {
	err := c.svc.Get(ctx, key, dest)
	hit := err == nil
	if err != nil && !errors.Is(err, pkgcache.ErrCacheMiss) {
		c.l.Warn("cache get error", applogger.String("key", key), applogger.Error(err))
	}
	if hit {
		c.counters(ns).hits.Add(1)
	} else {
		c.counters(ns).misses.Add(1)
	}
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(string(ns), hit)
	}
	return hit
}

// Store saves value under key with the configured TTL.
func (c *SeriesCache) Store(ctx context.Context, key string, value interface{}) {
	if err := c.svc.Set(ctx, key, value, c.ttl); err != nil {
		c.l.Warn("cache set error", applogger.String("key", key), applogger.Error(err))
		if c.metrics != nil {
			c.metrics.RecordError("cache_set")
		}
	}
}

// Generation returns the current bust generation. Read it before loading
// data and hand it to StoreIfCurrent.
func (c *SeriesCache) Generation() uint64 { return c.gen.Load() }

// StoreIfCurrent stores value unless a Bust ran since gen was read, and
// reports whether it stored.
func (c *SeriesCache) StoreIfCurrent(ctx context.Context, key string, value interface{}, gen uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gen.Load() != gen {
		c.l.Debug("cache store skipped after bust", applogger.String("key", key))
		return false
	}
	c.Store(ctx, key, value)
	return true
}

// Bust drops every cached series and forecast.
func (c *SeriesCache) Bust(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen.Add(1)
	for _, ns := range []Namespace{NSSeries, NSForecast} {
		if err := c.svc.DeleteByPattern(ctx, pkgcache.BuildPattern(string(ns))); err != nil {
			return fmt.Errorf("bust %s: %w", ns, err)
		}
	}
	c.l.Info("cache busted")
	return nil
}

// Stats returns hit and miss counts per namespace.
func (c *SeriesCache) Stats() Stats {
	return Stats{
		TTL:      c.ttl.String(),
		Series:   NamespaceStats{Hits: c.series.hits.Load(), Misses: c.series.misses.Load()},
		Forecast: NamespaceStats{Hits: c.forecast.hits.Load(), Misses: c.forecast.misses.Load()},
	}
}
