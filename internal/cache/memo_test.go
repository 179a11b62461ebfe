package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// failingStore errors on every operation, for degradation tests.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("store down")
}
func (failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("store down")
}
func (failingStore) FlushAll(ctx context.Context) error { return errors.New("store down") }
func (failingStore) Ping(ctx context.Context) error     { return errors.New("store down") }
func (failingStore) Close() error                       { return nil }

func TestKey(t *testing.T) {
	t.Run("NoArgs", func(t *testing.T) {
		if got := Key("metrics.kpi_summary"); got != "kestrel:memo:metrics.kpi_summary" {
			t.Errorf("unexpected key: %s", got)
		}
	})

	t.Run("Stable", func(t *testing.T) {
		a := Key("metrics.series", "month")
		b := Key("metrics.series", "month")
		if a != b {
			t.Errorf("same args produced different keys: %s != %s", a, b)
		}
	})

	t.Run("DistinctArgs", func(t *testing.T) {
		a := Key("metrics.series", "month")
		b := Key("metrics.series", "week")
		if a == b {
			t.Error("different args produced the same key")
		}
	})

	t.Run("Namespaced", func(t *testing.T) {
		key := Key("metrics.top_countries", 10, false, "revenue")
		if !strings.HasPrefix(key, "kestrel:memo:metrics.top_countries:") {
			t.Errorf("key missing namespace prefix: %s", key)
		}
	})
}

func TestCached(t *testing.T) {
	ctx := context.Background()

	t.Run("MemoizesResult", func(t *testing.T) {
		store := NewMemoryCache(100)

		computes := 0
		compute := func(ctx context.Context) (int, error) {
			computes++
			return 42, nil
		}

		for i := 0; i < 3; i++ {
			got, err := Cached(ctx, store, "test:int", time.Minute, compute)
			if err != nil {
				t.Fatalf("Cached failed: %v", err)
			}
			if got != 42 {
				t.Errorf("expected 42, got %d", got)
			}
		}

		if computes != 1 {
			t.Errorf("expected 1 compute, got %d", computes)
		}
	})

	t.Run("StructResult", func(t *testing.T) {
		store := NewMemoryCache(100)
		type pair struct {
			A string  `json:"a"`
			B float64 `json:"b"`
		}

		first, err := Cached(ctx, store, "test:pair", time.Minute, func(ctx context.Context) (pair, error) {
			return pair{A: "x", B: 1.5}, nil
		})
		if err != nil {
			t.Fatalf("Cached failed: %v", err)
		}

		second, err := Cached(ctx, store, "test:pair", time.Minute, func(ctx context.Context) (pair, error) {
			t.Fatal("compute should not run on hit")
			return pair{}, nil
		})
		if err != nil {
			t.Fatalf("Cached failed: %v", err)
		}
		if second != first {
			t.Errorf("expected %+v, got %+v", first, second)
		}
	})

	t.Run("ComputeErrorPropagates", func(t *testing.T) {
		store := NewMemoryCache(100)
		wantErr := errors.New("boom")

		_, err := Cached(ctx, store, "test:err", time.Minute, func(ctx context.Context) (int, error) {
			return 0, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("expected compute error, got %v", err)
		}
	})

	t.Run("FailingStoreDegradesToCompute", func(t *testing.T) {
		computes := 0
		for i := 0; i < 2; i++ {
			got, err := Cached(ctx, failingStore{}, "test:down", time.Minute, func(ctx context.Context) (string, error) {
				computes++
				return "ok", nil
			})
			if err != nil {
				t.Fatalf("Cached failed: %v", err)
			}
			if got != "ok" {
				t.Errorf("expected 'ok', got %q", got)
			}
		}
		if computes != 2 {
			t.Errorf("expected compute on every call, got %d", computes)
		}
	})

	t.Run("CorruptEntryDegradesToCompute", func(t *testing.T) {
		store := NewMemoryCache(100)
		_ = store.Set(ctx, "test:corrupt", []byte("{not json"), time.Minute)

		got, err := Cached(ctx, store, "test:corrupt", time.Minute, func(ctx context.Context) (int, error) {
			return 7, nil
		})
		if err != nil {
			t.Fatalf("Cached failed: %v", err)
		}
		if got != 7 {
			t.Errorf("expected 7, got %d", got)
		}
	})
}
