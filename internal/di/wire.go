//go:build wireinject
// +build wireinject

package di

import (
	"TourCast/internal/domain/repository"
	internalrepo "TourCast/internal/repository"
	"TourCast/pkg/config"
	"TourCast/pkg/server"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	// Infrastructure
	ProvideLogger,
	ProvideMetrics,
	ProvideWarehouseClient,
	ProvideEventStore,
	wire.Bind(new(repository.EventSource), new(*internalrepo.SQLEventStore)),
	wire.Bind(new(repository.EventStore), new(*internalrepo.SQLEventStore)),
	ProvideCacheService,
	ProvideSeriesCache,

	// Pipeline
	ProvideAggregator,
	ProvideForecastEngine,
	ProvideForecaster,

	// Use cases
	ProvideSeriesUseCase,
	ProvideForecastUseCase,
	ProvideDashboardUseCase,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,

		// Kafka ingestion
		ProvideKafkaConsumer,
		ProvideKafkaRecordsHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideDashboardHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil, nil
}

// InitializeTools wires the dependencies used by tourctl.
func InitializeTools(cfg *config.Config) (*Tools, func(), error) {
	wire.Build(
		coreSet,
		ProvideKafkaProducer,
		ProvideRecordPublisher,
		ProvideRecordIngestor,
		ProvideTools,
	)
	return &Tools{}, nil, nil
}
