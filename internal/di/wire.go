//go:build wireinject
// +build wireinject

package di

import (
	"Quantra/pkg/config"
	"Quantra/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideCandleStore,
		ProvidePublisher,
		ProvidePriceSource,
		ProvideModelStore,
		ProvideMarketStream,

		// Ingestion
		ProvideKafkaTicksHandler,
		ProvideTickProcessor,
		ProvideTickCollector,

		// Strategy use cases
		ProvideHistoryProvider,
		ProvideTrainLock,
		ProvideTrainUseCase,
		ProvideRetrainWorker,
		ProvideSignalUseCase,
		ProvideBacktestUseCase,
		ProvideSessionRegistry,

		// HTTP
		ProvideResponseCache,
		ProvideStrategyHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
