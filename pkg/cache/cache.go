// Package cache provides the byte cache behind papergraph's pipeline and
// API client.
//
// A [Cache] stores opaque byte values under string keys with an optional
// TTL. Four backends are available:
//
//   - [FileCache]: one JSON file per entry under a local directory (CLI default)
//   - [RedisCache]: a shared Redis instance, for several server replicas
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: stores nothing, for disabling caching and for tests
//
// Keys are built by a [Keyer] so that every backend sees the same key space.
// [NewScopedKeyer] prefixes keys to isolate deployments sharing one backend.
//
// # Retries
//
// [RetryWithBackoff] retries operations whose errors are wrapped with
// [Retryable]. The API client wraps 5xx responses and network failures this
// way; 4xx responses and context errors are returned immediately.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry. Implementations must be safe
// for concurrent use.
type Cache interface {
	// Get returns the value and true on a hit, or nil and false on a miss.
	// Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs per entry kind.
const (
	TTLSearch   = 10 * time.Minute
	TTLGraph    = time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)
