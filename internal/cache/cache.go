// Package cache provides the response cache backends and the conditional
// request helpers built on top of them. Cached values are fully encoded
// response bodies, keyed by the request shape that produced them.
package cache

import (
	"context"
	"time"
)

// Cache is the interface all cache backends implement
type Cache interface {
	// Get retrieves a value, returning ErrCacheMiss when absent or expired
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL; ttl 0 means the backend default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single value
	Delete(ctx context.Context, key string) error

	// Clear removes all values owned by this cache
	Clear(ctx context.Context) error

	// Close releases backend resources
	Close() error
}

// Config holds settings common to all backends
type Config struct {
	// DefaultTTL applies when Set is called with ttl 0
	DefaultTTL time.Duration
	// Prefix is prepended to every key
	Prefix string
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "facet:",
	}
}

// ErrCacheMiss is returned when a key is not present
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsMiss reports whether an error is a cache miss
func IsMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}
