// Package di provides dependency injection configuration for the sync sidecar.
package di

import (
	"github.com/samber/do/v2"

	"github.com/critiqapp/critiq-sync/internal/cache"
	"github.com/critiqapp/critiq-sync/internal/config"
	"github.com/critiqapp/critiq-sync/internal/di/providers"
	"github.com/critiqapp/critiq-sync/internal/feed"
	"github.com/critiqapp/critiq-sync/internal/logger"
	"github.com/critiqapp/critiq-sync/internal/remote"
	"github.com/critiqapp/critiq-sync/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage and events
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Backend
	do.Provide(injector, providers.ProvideSession)
	do.Provide(injector, providers.ProvideRemoteClient)

	// Sync core
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideEngine)
	do.Provide(injector, providers.ProvideLedger)
	do.Provide(injector, providers.ProvideFeedFilter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services.
// This triggers lazy initialization in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*remote.StaticSession](injector)
	_ = do.MustInvoke[*providers.RemoteClientHandle](injector)
	_ = do.MustInvoke[*cache.Cache](injector)
	_ = do.MustInvoke[*providers.EngineHandle](injector)
	_ = do.MustInvoke[*providers.LedgerHandle](injector)
	_ = do.MustInvoke[*feed.Filter](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
