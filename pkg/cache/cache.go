// Package cache provides result caching for solve runs.
//
// Solving is deterministic: the same model text and options always produce
// the same outcome, so serialized results can be cached aggressively. Three
// backends implement the [Cache] interface: FileCache for CLI usage,
// RedisCache for server deployments, and NullCache to disable caching.
package cache

import (
	"context"
	"strings"
	"time"
)

// Default TTLs per entry type. Solve results never go stale (the inputs
// fully determine them); session listings do.
const (
	// SolveTTL is the lifetime of cached solve results. Zero means no
	// expiration.
	SolveTTL time.Duration = 0

	// RenderTTL is the lifetime of cached tree renderings.
	RenderTTL = 24 * time.Hour
)

// Cache is a byte-oriented key-value store with per-entry TTL.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// keyType extracts the key prefix ("solve", "render") for hook reporting.
func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}

// NullCache is a no-op cache that never stores anything.
// Useful for testing or when caching should be disabled.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always returns a cache miss.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

// Ensure NullCache implements Cache.
var _ Cache = (*NullCache)(nil)
