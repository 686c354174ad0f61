// Package api exposes the sync engine to the local UI over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/critiqapp/critiq-sync/internal/comments"
	"github.com/critiqapp/critiq-sync/internal/engine"
	"github.com/critiqapp/critiq-sync/internal/feed"
	"github.com/critiqapp/critiq-sync/internal/sse"
	"github.com/critiqapp/critiq-sync/internal/store"
)

// Services holds the components the handlers call into.
// Store and SSEManager may be nil; health then reports them as degraded.
type Services struct {
	Engine     *engine.Engine
	Ledger     *comments.Ledger
	Feed       *feed.Filter
	Store      *store.Store
	SSEManager *sse.Manager
	SSEHandler *sse.Handler
}

// Options configures the HTTP layer.
type Options struct {
	Title          string
	Version        string
	AllowedOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.Title == "" {
		opts.Title = "Critiq Sync API"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig(opts.Title, opts.Version)
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		services: services,
		router:   router,
		api:      api,
		logger:   logger,
	}

	s.registerHealthRoutes()
	s.registerInteractionRoutes()
	s.registerCommentRoutes()
	s.registerFeedRoutes()

	// The event stream is long-lived and not JSON, so it stays a plain chi route.
	if services.SSEHandler != nil {
		router.Get("/api/v1/events", services.SSEHandler.ServeHTTP)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}
