package repository

import (
	"context"
	"time"
)

// CacheRepository is a small key/value cache used for short-lived values
// such as verified payment results.
type CacheRepository interface {
	// Get unmarshals the cached value into dest. The bool reports a hit.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores a value with a TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error
}
