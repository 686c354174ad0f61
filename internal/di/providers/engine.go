package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/critiqapp/critiq-sync/internal/cache"
	"github.com/critiqapp/critiq-sync/internal/comments"
	"github.com/critiqapp/critiq-sync/internal/config"
	"github.com/critiqapp/critiq-sync/internal/engine"
	"github.com/critiqapp/critiq-sync/internal/feed"
	"github.com/critiqapp/critiq-sync/internal/logger"
	"github.com/critiqapp/critiq-sync/internal/remote"
	"github.com/critiqapp/critiq-sync/internal/sse"
	"github.com/critiqapp/critiq-sync/internal/validation"
)

// ProvideValidator provides the shared validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideCache provides the in-memory interaction cache.
func ProvideCache(i do.Injector) (*cache.Cache, error) {
	return cache.New(), nil
}

// ProvideSession provides the session token holder.
func ProvideSession(i do.Injector) (*remote.StaticSession, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Backend.SessionToken == "" {
		log.Warn("No session token configured, remote calls will fail until one is set")
	}
	return remote.NewStaticSession(cfg.Backend.SessionToken), nil
}

// RemoteClientHandle wraps the backend client with shutdown capability.
type RemoteClientHandle struct {
	*remote.Client
}

// Shutdown implements do.Shutdownable.
func (h *RemoteClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideRemoteClient provides the rate-limited backend gateway.
func ProvideRemoteClient(i do.Injector) (*RemoteClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	session := do.MustInvoke[*remote.StaticSession](i)

	client, err := remote.New(remote.Options{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
		RPS:     cfg.Backend.RPS,
		Burst:   cfg.Backend.Burst,
	}, session, log.ForComponent("remote").Logger)
	if err != nil {
		return nil, err
	}

	return &RemoteClientHandle{Client: client}, nil
}

// EngineHandle wraps the reconciliation engine and its event bridge.
type EngineHandle struct {
	*engine.Engine
	detach func()
}

// Shutdown implements do.Shutdownable.
// In-flight intents are rolled back before the store closes.
func (h *EngineHandle) Shutdown() error {
	defer h.detach()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Close(ctx)
}

// ProvideEngine provides the reconciliation engine, hydrated from the local store.
func ProvideEngine(i do.Injector) (*EngineHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	c := do.MustInvoke[*cache.Cache](i)
	v := do.MustInvoke[*validation.Validator](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	clientHandle := do.MustInvoke[*RemoteClientHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	eng := engine.New(c, clientHandle.Client, storeHandle.Store, v, log.ForComponent("engine").Logger, engine.Options{
		RemoteTimeout: cfg.Engine.RemoteTimeout,
		OnOutcome:     sse.OutcomeHook(sseHandle.Manager),
	})

	// Hydration never fails the boot; unreadable buckets start empty.
	ctx, cancel := context.WithTimeout(context.Background(), hydrateTimeout)
	defer cancel()
	if err := eng.Hydrate(ctx); err != nil {
		log.Warn("Engine hydration interrupted", "error", err)
	}

	detach := sse.BridgeCache(sseHandle.Manager, c)

	log.Info("Reconciliation engine ready", "remote_timeout", cfg.Engine.RemoteTimeout)

	return &EngineHandle{Engine: eng, detach: detach}, nil
}

// LedgerHandle wraps the comment ledger and its event bridge.
type LedgerHandle struct {
	*comments.Ledger
	detach func()
}

// Shutdown implements do.Shutdownable.
func (h *LedgerHandle) Shutdown() error {
	h.detach()
	return nil
}

// ProvideLedger provides the comment ledger.
func ProvideLedger(i do.Injector) (*LedgerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	v := do.MustInvoke[*validation.Validator](i)
	clientHandle := do.MustInvoke[*RemoteClientHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	ledger := comments.New(clientHandle.Client, v, log.ForComponent("comments").Logger, comments.Options{
		PageSize:  cfg.Comments.PageSize,
		MaxLength: cfg.Comments.MaxLength,
	})

	return &LedgerHandle{
		Ledger: ledger,
		detach: sse.BridgeLedger(sseHandle.Manager, ledger),
	}, nil
}

// ProvideFeedFilter provides the visibility filter over the hidden-post state.
func ProvideFeedFilter(i do.Injector) (*feed.Filter, error) {
	engineHandle := do.MustInvoke[*EngineHandle](i)
	return feed.NewFilter(engineHandle.Engine), nil
}
