//go:build wireinject
// +build wireinject

package di

import (
	"ChartSignal/pkg/config"
	"ChartSignal/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvideMetrics,
		ProvideCache,

		// Repositories
		ProvideArchive,
		ProvidePublisher,
		ProvideSignalStore,
		ProvideFrameSource,

		// Capture pipeline
		ProvideHeuristic,
		ProvideDecider,
		ProvidePlanner,

		// Use cases
		ProvideSignalProcessor,
		ProvideDispatchPipeline,
		ProvideSignalsUseCase,
		ProvideHistoryUseCase,
		ProvideHub,
		ProvideCaptureController,
		ProvideKafkaConsumer,
		ProvideKafkaSignalsHandler,

		// HTTP
		ProvideAPIMetrics,
		ProvideLimiter,
		ProvideSignalsHandler,
		ProvideCaptureHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
