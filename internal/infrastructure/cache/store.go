// Package cache provides the small key/value stores the portal uses for
// reference data: Redis for shared deployments, in-memory as fallback.
package cache

import (
	"context"
	"time"
)

// Store is a byte-value cache with per-key TTL.
type Store interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes a key.
	Delete(ctx context.Context, key string) error
}
