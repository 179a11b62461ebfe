package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/opensource-commerce/kestrel/internal/domain"
)

// Key builds a memoization cache key from an operation name and its
// arguments. Arguments are rendered to a stable textual form and hashed, so
// unrelated calls never contend on the same key and long argument lists stay
// within key size limits.
func Key(op string, args ...any) string {
	if len(args) == 0 {
		return "kestrel:memo:" + op
	}

	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "%v", arg)
	}
	return fmt.Sprintf("kestrel:memo:%s:%016x", op, xxhash.Sum64String(sb.String()))
}

// Cached memoizes a single computation under key. On a hit the stored JSON
// is decoded into T; on a miss compute runs and its result is stored with
// the given TTL. Every cache failure, read, decode or write, is logged and
// degrades to always-compute, never a hard failure.
func Cached[T any](ctx context.Context, store domain.Cache, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if payload, err := store.Get(ctx, key); err != nil {
		slog.Error("result cache read failed, treating as miss", "key", key, "error", err)
	} else if payload != nil {
		var result T
		if err := json.Unmarshal(payload, &result); err != nil {
			slog.Error("result cache decode failed, treating as miss", "key", key, "error", err)
		} else {
			slog.Debug("cache HIT", "key", key)
			return result, nil
		}
	} else {
		slog.Debug("cache MISS", "key", key)
	}

	result, err := compute(ctx)
	if err != nil {
		return result, err
	}

	if payload, err := json.Marshal(result); err != nil {
		slog.Error("result cache encode failed", "key", key, "error", err)
	} else if err := store.Set(ctx, key, payload, ttl); err != nil {
		slog.Error("result cache write failed", "key", key, "error", err)
	}

	return result, nil
}
