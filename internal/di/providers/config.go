// Package providers contains dependency injection providers for the sync sidecar.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/critiqapp/critiq-sync/internal/config"
	"github.com/critiqapp/critiq-sync/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Critiq sync",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.Path,
		"storage_driver", cfg.Storage.Driver,
		"backend_url", cfg.Backend.URL,
	)

	return log, nil
}
