// Package api provides the HTTP query boundary over the analytics engines.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-commerce/kestrel/internal/customer"
	"github.com/opensource-commerce/kestrel/internal/domain"
	"github.com/opensource-commerce/kestrel/internal/metrics"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, engine *metrics.Engine, customers *customer.Engine, cacheStore domain.Cache, eventBus domain.EventBus, version string) *Server {
	handler := NewHandler(engine, customers, cacheStore, eventBus, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Revenue analysis
	router.Route("/analysis", func(r chi.Router) {
		r.Get("/kpi_summary", handler.KPISummary)
		r.Get("/series", handler.Series)
		r.Get("/top_countries", handler.TopCountries)
		r.Get("/top_countries/{name}", handler.TopCountryByName)
		r.Get("/top_products", handler.TopProducts)
		r.Get("/page", handler.Rows)
	})

	// Customer analytics
	router.Route("/metrics/customers", func(r chi.Router) {
		r.Get("/rfm", handler.RFMAnalysis)
		r.Get("/rfm/page", handler.RFMPage)
		r.Get("/top-spenders", handler.TopSpenders)
	})

	// Out-of-band cache administration
	router.Route("/admin", func(r chi.Router) {
		r.Delete("/cache", handler.ClearCache)
		r.Post("/tasks/warm-up-cache", handler.WarmUpCache)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
