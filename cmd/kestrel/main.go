// Kestrel - e-commerce analytics over a raw transaction feed.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-commerce/kestrel/internal/api"
	"github.com/opensource-commerce/kestrel/internal/bus"
	"github.com/opensource-commerce/kestrel/internal/cache"
	"github.com/opensource-commerce/kestrel/internal/customer"
	"github.com/opensource-commerce/kestrel/internal/domain"
	"github.com/opensource-commerce/kestrel/internal/metrics"
	"github.com/opensource-commerce/kestrel/internal/rules"
	"github.com/opensource-commerce/kestrel/internal/source"
	"github.com/opensource-commerce/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration
	cfg := domain.DefaultConfig().FromEnv()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"source", cfg.Source.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"dataset_ttl", cfg.Metrics.DatasetTTL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize raw transaction source
	rawSource, err := source.New(cfg.Source)
	if err != nil {
		slog.Error("failed to initialize source", "error", err)
		os.Exit(1)
	}
	slog.Info("source initialized", "driver", cfg.Source.Driver)

	// Initialize cache store
	store, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize event bus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize segment rule engine
	segments, err := rules.NewSegmentEngine()
	if err != nil {
		slog.Error("failed to initialize segment engine", "error", err)
		os.Exit(1)
	}
	if err := segments.LoadRules(rules.BuiltinSegmentRules()); err != nil {
		slog.Error("failed to load segment rules", "error", err)
		os.Exit(1)
	}
	slog.Info("segment engine initialized", "rules_count", segments.RulesCount())

	// Initialize analytics engines
	engine := metrics.NewEngine(rawSource, store, cfg.Metrics)
	customers := customer.NewEngine(engine, segments, cfg.Metrics.MaxScore)

	// Start warm-up worker
	warmWorker := worker.NewWorker(busImpl, engine, worker.Config{
		DatasetTTL: cfg.Metrics.DatasetTTL,
	})
	if err := warmWorker.Start(); err != nil {
		slog.Error("failed to start warm-up worker", "error", err)
	}

	// Initialize server
	srv := api.NewServer(cfg.Server, engine, customers, store, busImpl, Version)

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := warmWorker.Stop(); err != nil {
		slog.Error("failed to stop warm-up worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  KESTREL - e-commerce analytics engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Source:   %s\n", cfg.Source.Driver)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET  /analysis/kpi_summary            - Revenue KPI summary")
	fmt.Println("    GET  /analysis/series                 - Resampled revenue series")
	fmt.Println("    GET  /analysis/top_countries          - Country revenue ranking")
	fmt.Println("    GET  /analysis/top_countries/{name}   - Single country aggregate")
	fmt.Println("    GET  /analysis/top_products           - Product revenue ranking")
	fmt.Println("    GET  /analysis/page                   - Cleaned rows, paginated")
	fmt.Println("    GET  /metrics/customers/rfm           - RFM segmentation")
	fmt.Println("    GET  /metrics/customers/rfm/page      - RFM segmentation, paginated")
	fmt.Println("    GET  /metrics/customers/top-spenders  - Top spending customers")
	fmt.Println("    DELETE /admin/cache                   - Flush the cache")
	fmt.Println("    POST /admin/tasks/warm-up-cache       - Force dataset recompute")
	fmt.Println("    GET  /health                          - Health check")
	fmt.Println()
}
