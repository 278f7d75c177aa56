//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"TradePulse/pkg/config"
	"TradePulse/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideBytesCache,

		// Repositories
		ProvideCHStore,
		ProvideStateCache,
		ProvideBarSource,

		// Pipeline stages
		ProvideWindow,
		ProvideFeatureEngine,
		ProvideClassifier,
		ProvidePredictors,
		ProvideScaler,
		ProvideAggregator,
		ProvideGenerator,
		ProvideRiskManager,

		// Publishing
		ProvideStreamHub,
		ProvideResultSink,

		// Use cases
		ProvidePipeline,
		ProvideRunner,

		// HTTP API and application
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
