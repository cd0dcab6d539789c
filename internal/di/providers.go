package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"TourCast/internal/domain/repository"
	domsvc "TourCast/internal/domain/service"
	"TourCast/internal/handler/api"
	internalrepo "TourCast/internal/repository"
	svccache "TourCast/internal/service/cache"
	"TourCast/internal/service/ratelimit"
	"TourCast/internal/services/aggregation"
	"TourCast/internal/services/forecasting"
	"TourCast/internal/usecase"
	pkgcache "TourCast/pkg/cache"
	"TourCast/pkg/config"
	xhttp "TourCast/pkg/http"
	pkgkafka "TourCast/pkg/kafka"
	applogger "TourCast/pkg/logger"
	"TourCast/pkg/metrics"
	"TourCast/pkg/server"
	"TourCast/pkg/warehouse"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideWarehouseClient opens the warehouse connection pool. The cleanup
// closes it and runs after everything built on top of it.
func ProvideWarehouseClient(cfg *config.Config, l *applogger.Logger) (*warehouse.Client, func(), error) {
	dialect, err := warehouse.ParseDialect(cfg.Warehouse.Driver)
	if err != nil {
		return nil, nil, err
	}
	client, err := warehouse.NewClient(
		warehouse.WithDialect(dialect),
		warehouse.WithDSN(cfg.Warehouse.DSN),
		warehouse.WithHost(cfg.Warehouse.Host),
		warehouse.WithPort(cfg.Warehouse.Port),
		warehouse.WithDatabase(cfg.Warehouse.Database),
		warehouse.WithCredentials(cfg.Warehouse.User, cfg.Warehouse.Password),
		warehouse.WithMaxConnections(cfg.Warehouse.MaxOpenConns, cfg.Warehouse.MaxIdleConns),
		warehouse.WithHTTP(cfg.Warehouse.UseHTTP),
		warehouse.WithAsyncInsert(cfg.Warehouse.AsyncInsert, cfg.Warehouse.WaitForAsync),
		warehouse.WithTimeouts(cfg.Warehouse.DialTimeout, cfg.Warehouse.ReadTimeout, cfg.Warehouse.WriteTimeout),
		warehouse.WithMaxExecutionTime(cfg.Warehouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("warehouse client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("warehouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideEventStore creates the SQL event store and bootstraps its schema when asked to.
func ProvideEventStore(client *warehouse.Client, cfg *config.Config, l *applogger.Logger) (*internalrepo.SQLEventStore, error) {
	store := internalrepo.NewSQLEventStore(client, cfg.Warehouse.Table)
	store.SetLogger(l)
	if !cfg.Warehouse.InitSchema {
		return store, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("warehouse schema: %w", err)
	}
	return store, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCacheService selects the cache backend.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	mem := []pkgcache.MemoryOption{
		pkgcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
		pkgcache.WithMemoryDefaultTTL(cfg.Cache.TTL),
	}
	if cfg.Cache.Backend == "memory" {
		return pkgcache.NewMemoryCache(mem...), nil
	}

	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		pkgcache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if cfg.Cache.Backend == "layered" {
		return pkgcache.NewLayeredCache(rc, time.Minute, mem...), nil
	}
	return rc, nil
}

// ProvideSeriesCache wraps the cache backend with series/forecast keys.
func ProvideSeriesCache(svc pkgcache.Service, m repository.Metrics, cfg *config.Config, l *applogger.Logger) *svccache.SeriesCache {
	c := svccache.NewSeriesCache(svc, cfg.Cache.TTL)
	c.SetLogger(l)
	c.SetMetrics(m)
	return c
}

// ProvideAggregator creates the aggregator with the configured invalid-row policy.
func ProvideAggregator(cfg *config.Config) *aggregation.Aggregator {
	return aggregation.New(aggregation.WithPolicy(aggregation.Policy(cfg.Aggregation.InvalidRecordPolicy)))
}

// ProvideForecastEngine selects the in-process or remote model.
func ProvideForecastEngine(cfg *config.Config) domsvc.ForecastEngine {
	if cfg.Forecast.Engine == "remote" {
		return forecasting.NewRemoteEngine(cfg.Forecast)
	}
	return forecasting.NewNativeEngine(forecasting.SettingsFromConfig(cfg.Forecast))
}

// ProvideForecaster wraps the engine with the input gate and output checks.
func ProvideForecaster(engine domsvc.ForecastEngine, cfg *config.Config, l *applogger.Logger) *forecasting.Forecaster {
	return forecasting.NewForecaster(engine,
		forecasting.WithMinPoints(cfg.Forecast.MinPoints),
		forecasting.WithLogger(l),
	)
}

// ProvideSeriesUseCase creates the series use case.
func ProvideSeriesUseCase(
	source repository.EventSource,
	agg *aggregation.Aggregator,
	cache *svccache.SeriesCache,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SeriesUseCase {
	uc := usecase.NewSeriesUseCase(source, agg, cache, m)
	uc.SetLogger(l)
	return uc
}

// ProvideForecastUseCase creates the forecast use case.
func ProvideForecastUseCase(
	series *usecase.SeriesUseCase,
	f *forecasting.Forecaster,
	cache *svccache.SeriesCache,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ForecastUseCase {
	uc := usecase.NewForecastUseCase(series, f, cache, m, cfg.Forecast.DefaultHorizon)
	uc.SetLogger(l)
	return uc
}

// ProvideDashboardUseCase creates the dashboard use case.
func ProvideDashboardUseCase(source repository.EventSource, series *usecase.SeriesUseCase, fc *usecase.ForecastUseCase) *usecase.DashboardUseCase {
	return usecase.NewDashboardUseCase(source, series, fc)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.RateLimit.Disabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideDashboardHandler creates the Echo handler.
func ProvideDashboardHandler(
	l *applogger.Logger,
	series *usecase.SeriesUseCase,
	fc *usecase.ForecastUseCase,
	dash *usecase.DashboardUseCase,
	cache *svccache.SeriesCache,
	limiter *ratelimit.Limiter,
	store *internalrepo.SQLEventStore,
) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(l, series, fc, dash, cache, limiter, store)
}

// ProvideHTTPServer creates the Echo server with every route registered.
func ProvideHTTPServer(cfg *config.Config, h *api.DashboardEchoHandler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
		xhttp.WithMetrics(cfg.Metrics.Path, cfg.Metrics.SlowThreshold),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.KafkaEnabled() {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideRecordPublisher creates the Kafka publisher repository. It returns a
// nil interface when there is no producer.
func ProvideRecordPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRecordIngestor creates the ingestion use case.
func ProvideRecordIngestor(
	pub repository.Publisher,
	store repository.EventStore,
	cache *svccache.SeriesCache,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.RecordIngestor {
	return usecase.NewRecordIngestor(pub, store, cache, m, cfg.Ingest.Backend, cfg.Ingest.BatchSize)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is not configured or the consumer is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.KafkaEnabled() || cfg.Kafka.Consumer.Disabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaRecordsHandler creates the handler for the records topic.
func ProvideKafkaRecordsHandler(
	store repository.EventStore,
	cache *svccache.SeriesCache,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.KafkaRecordsHandler {
	h := usecase.NewKafkaRecordsHandler(cfg.Kafka.Topic, store, cache, m)
	h.SetLogger(l)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaRecordsHandler,
	cacheSvc pkgcache.Service,
) *server.App {
	var closers []io.Closer
	if c, ok := cacheSvc.(io.Closer); ok {
		closers = append(closers, c)
	}
	if consumer == nil {
		return server.New(l, srv, nil, nil, closers...)
	}
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, km kafka.Message, _ []byte, err error) {
			l.Warn("records message failed",
				applogger.String("topic", topic),
				applogger.Int("partition", km.Partition),
				applogger.Int64("offset", km.Offset),
				applogger.Error(err),
			)
		},
	})
	return server.New(l, srv, consumer, kh, closers...)
}

// Tools bundles what the command-line tool needs.
type Tools struct {
	Logger    *applogger.Logger
	Store     *internalrepo.SQLEventStore
	Ingestor  *usecase.RecordIngestor
	Forecast  *usecase.ForecastUseCase
	Dashboard *usecase.DashboardUseCase
	closers   []io.Closer
}

// Close releases the publisher and cache. The warehouse client is closed by
// the injector cleanup.
func (t *Tools) Close() {
	t.Ingestor.Close()
	for _, c := range t.closers {
		_ = c.Close()
	}
}

// ProvideTools assembles the CLI bundle.
func ProvideTools(
	l *applogger.Logger,
	store *internalrepo.SQLEventStore,
	ing *usecase.RecordIngestor,
	fc *usecase.ForecastUseCase,
	dash *usecase.DashboardUseCase,
	cacheSvc pkgcache.Service,
) *Tools {
	t := &Tools{Logger: l, Store: store, Ingestor: ing, Forecast: fc, Dashboard: dash}
	if c, ok := cacheSvc.(io.Closer); ok {
		t.closers = append(t.closers, c)
	}
	return t
}
