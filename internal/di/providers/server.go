package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/critiqapp/critiq-sync/internal/api"
	"github.com/critiqapp/critiq-sync/internal/config"
	"github.com/critiqapp/critiq-sync/internal/feed"
	"github.com/critiqapp/critiq-sync/internal/logger"
	"github.com/critiqapp/critiq-sync/internal/sse"
)

// Version is reported in the OpenAPI document.
var Version = "dev"

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the local HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	engineHandle := do.MustInvoke[*EngineHandle](i)
	ledgerHandle := do.MustInvoke[*LedgerHandle](i)
	filter := do.MustInvoke[*feed.Filter](i)

	services := &api.Services{
		Engine:     engineHandle.Engine,
		Ledger:     ledgerHandle.Ledger,
		Feed:       filter,
		Store:      storeHandle.Store,
		SSEManager: sseHandle.Manager,
		SSEHandler: sse.NewHandler(sseHandle.Manager, log.ForComponent("sse").Logger),
	}

	handler := api.NewServer(services, api.Options{
		Version:        Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
