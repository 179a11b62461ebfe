// Package worker provides the scheduled cache warm-up pipeline.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-commerce/kestrel/internal/domain"
)

// Warmer force-populates the dataset cache. Satisfied by the metrics engine.
type Warmer interface {
	WarmUp(ctx context.Context) error
}

// Worker keeps the dataset cache hot. It requests a warm-up at startup and
// then every half dataset TTL, so live requests rarely see a cold cache.
// Triggers travel over the event bus, which lets an external scheduler
// publish them too. The worker only writes the dataset key and holds no lock
// that blocks concurrent reads.
type Worker struct {
	bus    domain.EventBus
	warmer Warmer

	interval   time.Duration
	maxRetries int
	retryDelay time.Duration

	subscription domain.Subscription
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// DatasetTTL drives the refresh interval: warm-ups run every TTL/2.
	DatasetTTL time.Duration

	// MaxRetries bounds warm-up attempts per trigger.
	MaxRetries int

	// RetryDelay separates attempts.
	RetryDelay time.Duration
}

// NewWorker creates a warm-up worker.
func NewWorker(eventBus domain.EventBus, warmer Warmer, cfg Config) *Worker {
	interval := cfg.DatasetTTL - cfg.DatasetTTL/2
	if interval <= 0 {
		interval = time.Minute
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:        eventBus,
		warmer:     warmer,
		interval:   interval,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to warm-up requests, triggers the initial warm-up and
// begins the periodic schedule.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicWarmupRequested, w.handleWarmup)
	if err != nil {
		return err
	}
	w.subscription = sub

	// Warm the cache once at startup so the first request is fast.
	if err := w.bus.Publish(w.ctx, domain.TopicWarmupRequested, nil); err != nil {
		slog.Error("failed to publish initial warm-up request", "error", err)
	}

	w.wg.Add(1)
	go w.schedule()

	slog.Info("warm-up worker started", "interval", w.interval)
	return nil
}

func (w *Worker) schedule() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if err := w.bus.Publish(w.ctx, domain.TopicWarmupRequested, nil); err != nil {
				slog.Error("failed to publish warm-up request", "error", err)
			}
		}
	}
}

// handleWarmup performs the warm-up with bounded retries and announces
// completion on the bus.
func (w *Worker) handleWarmup(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var err error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		err = w.warmer.WarmUp(ctx)
		if err == nil {
			break
		}

		slog.Error("cache warm-up attempt failed",
			"attempt", attempt,
			"max_attempts", w.maxRetries,
			"error", err,
		)

		if attempt == w.maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.retryDelay):
		}
	}

	slog.Info("cache warm-up complete", "duration_ms", time.Since(start).Milliseconds())

	if err := w.bus.Publish(ctx, domain.TopicWarmupCompleted, nil); err != nil {
		slog.Error("failed to publish warm-up completion", "error", err)
	}
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	if w.subscription != nil {
		if err := w.subscription.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", w.subscription.Topic(),
				"error", err,
			)
		}
		w.subscription = nil
	}

	w.wg.Wait()

	slog.Info("warm-up worker stopped")
	return nil
}
