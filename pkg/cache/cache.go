// Package cache memoizes enumeration results so repeated runs over the
// same structure and composition skip the walk entirely. Keys are content
// hashes of the inputs that determine the result; backends are a local file
// cache for CLI use, a Redis cache for shared deployments, and a null cache
// for disabling memoization.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value and true if present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the value if present.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
