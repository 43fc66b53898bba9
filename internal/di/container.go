// Package di provides dependency injection configuration for the reading tracker.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/readtrack/internal/auth"
	"github.com/listenupapp/readtrack/internal/config"
	"github.com/listenupapp/readtrack/internal/di/providers"
	"github.com/listenupapp/readtrack/internal/logger"
	"github.com/listenupapp/readtrack/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchEventLog)
	do.Provide(injector, providers.ProvideBookViewLog)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideKeyLocker)
	do.Provide(injector, providers.ProvideSearchFeed)
	do.Provide(injector, providers.ProvideSessionManager)
	do.Provide(injector, providers.ProvideProgressTracker)
	do.Provide(injector, providers.ProvideAnalytics)
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideOverview)

	// Workers
	do.Provide(injector, providers.ProvideHeartbeatLimiter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchEventLogHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.BookViewLogHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*service.SessionManager](injector)
	_ = do.MustInvoke[*service.ProgressTracker](injector)
	_ = do.MustInvoke[*service.Analytics](injector)
	_ = do.MustInvoke[*service.StatsService](injector)
	_ = do.MustInvoke[*service.Overview](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
