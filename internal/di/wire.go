//go:build wireinject
// +build wireinject

package di

import (
	"DipWatch/pkg/config"
	"DipWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Feed
		ProvideMarketStream,
		ProvideSnapshotSource,
		ProvideCache,

		// Alert fan-out
		ProvideAlertPublisher,

		// Core
		ProvideEngine,
		ProvideScheduler,
		ProvideCollector,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
