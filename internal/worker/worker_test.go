package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-commerce/kestrel/internal/bus"
	"github.com/opensource-commerce/kestrel/internal/domain"
)

// stubWarmer counts warm-up invocations and fails the first failures calls.
type stubWarmer struct {
	calls    atomic.Int32
	failures int32
}

func (w *stubWarmer) WarmUp(ctx context.Context) error {
	n := w.calls.Add(1)
	if n <= w.failures {
		return errors.New("source unavailable")
	}
	return nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWorker(t *testing.T) {
	t.Run("WarmsUpOnStart", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()

		warmer := &stubWarmer{}
		worker := NewWorker(eventBus, warmer, Config{DatasetTTL: time.Hour})

		if err := worker.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer worker.Stop()

		waitFor(t, time.Second, func() bool { return warmer.calls.Load() == 1 })
	})

	t.Run("AnnouncesCompletion", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()

		var completed atomic.Bool
		_, err := eventBus.Subscribe(context.Background(), domain.TopicWarmupCompleted,
			func(ctx context.Context, msg *domain.Message) error {
				completed.Store(true)
				return nil
			})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		worker := NewWorker(eventBus, &stubWarmer{}, Config{DatasetTTL: time.Hour})
		if err := worker.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer worker.Stop()

		waitFor(t, time.Second, func() bool { return completed.Load() })
	})

	t.Run("RespondsToBusTriggers", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()

		warmer := &stubWarmer{}
		worker := NewWorker(eventBus, warmer, Config{DatasetTTL: time.Hour})
		if err := worker.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer worker.Stop()

		waitFor(t, time.Second, func() bool { return warmer.calls.Load() == 1 })

		// An external trigger published on the bus runs another warm-up.
		if err := eventBus.Publish(context.Background(), domain.TopicWarmupRequested, nil); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
		waitFor(t, time.Second, func() bool { return warmer.calls.Load() == 2 })
	})

	t.Run("RetriesFailedWarmUp", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()

		warmer := &stubWarmer{failures: 2}
		worker := NewWorker(eventBus, warmer, Config{
			DatasetTTL: time.Hour,
			MaxRetries: 3,
			RetryDelay: 5 * time.Millisecond,
		})
		if err := worker.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer worker.Stop()

		// Two failures then success, within the three-attempt budget.
		waitFor(t, time.Second, func() bool { return warmer.calls.Load() == 3 })
	})

	t.Run("StopIsIdempotentWaiting", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()

		worker := NewWorker(eventBus, &stubWarmer{}, Config{DatasetTTL: time.Hour})
		if err := worker.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := worker.Stop(); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
	})
}

func TestWorkerInterval(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	// Half of the dataset TTL, and never zero.
	worker := NewWorker(eventBus, &stubWarmer{}, Config{DatasetTTL: 10 * time.Minute})
	if worker.interval != 5*time.Minute {
		t.Errorf("expected 5m interval, got %v", worker.interval)
	}

	zero := NewWorker(eventBus, &stubWarmer{}, Config{})
	if zero.interval <= 0 {
		t.Errorf("expected positive fallback interval, got %v", zero.interval)
	}
}
