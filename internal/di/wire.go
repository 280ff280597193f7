//go:build wireinject
// +build wireinject

package di

import (
	"DemandCast/internal/usecase"
	"DemandCast/pkg/config"
	"DemandCast/pkg/server"

	"github.com/google/wire"
)

var storeSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,

	// Infrastructure clients
	ProvideClickHouseClient,
	ProvidePostgresClient,
	ProvideRedisClient,
	ProvideKafkaProducer,

	// Repositories
	ProvideRecordStore,
	ProvideFactorStore,
	ProvideModelStore,
	ProvideResultPublisher,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		storeSet,
		ProvideAPIMetrics,
		ProvideConfigurationStore,

		// Use cases
		ProvideForecastService,
		ProvideNotifier,
		ProvideForecastJob,
		ProvideCleanupJob,
		ProvideJobQueue,
		ProvideCleanupScheduler,
		ProvideIngest,

		// HTTP
		ProvideHTTPHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeForecaster builds the forecasting pipeline for one-shot CLI runs.
func InitializeForecaster(cfg *config.Config) (*usecase.ForecastService, func(), error) {
	wire.Build(storeSet, ProvideForecastService)
	return nil, nil, nil
}

// InitializeCleanup builds the model cache cleanup job.
func InitializeCleanup(cfg *config.Config) (*usecase.CleanupJob, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvidePostgresClient,
		ProvideRedisClient,
		ProvideModelStore,
		ProvideCleanupJob,
	)
	return nil, nil, nil
}
