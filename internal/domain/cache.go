package domain

import (
	"context"
	"time"
)

// Cache defines the key-value store behind the dataset cache and the
// per-query memoization layer. Every operation is independently fallible;
// callers are expected to degrade to recomputation on error.
type Cache interface {
	// Get retrieves a value. Returns nil, nil if the key is not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// FlushAll clears the entire cache namespace. There is no key-scoped
	// invalidation; callers rely on TTL expiry for freshness.
	FlushAll(ctx context.Context) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings
	LocalMaxSize int

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}
