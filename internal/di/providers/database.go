package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/critiqapp/critiq-sync/internal/config"
	"github.com/critiqapp/critiq-sync/internal/logger"
	"github.com/critiqapp/critiq-sync/internal/sse"
	"github.com/critiqapp/critiq-sync/internal/store"
	"github.com/critiqapp/critiq-sync/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.ForComponent("sse").Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the local store with the configured driver.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeLog := log.ForComponent("store").Logger

	if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var (
		backend store.Backend
		dbPath  string
		err     error
	)
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		dbPath = filepath.Join(cfg.Storage.Path, "interactions.db")
		backend, err = sqlite.Open(dbPath, storeLog)
	default:
		dbPath = filepath.Join(cfg.Storage.Path, "db")
		backend, err = store.OpenBadger(dbPath, storeLog)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Local store initialized", "driver", cfg.Storage.Driver, "path", dbPath)

	return &StoreHandle{Store: store.New(backend, storeLog)}, nil
}
