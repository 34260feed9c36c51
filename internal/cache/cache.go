// Package cache stores fetched API responses so repeated conversions of the
// same identifiers do not hit the network.
package cache

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the cached value and true, or false on a miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key derives a fixed-length cache key from a request URL.
// The key format is: prefix:blake2b-256(url).
func Key(prefix, url string) string {
	sum := blake2b.Sum256([]byte(url))
	return prefix + ":" + hex.EncodeToString(sum[:])
}

// Null is a no-op cache that never stores anything.
type Null struct{}

// NewNull creates a null cache.
func NewNull() Cache {
	return Null{}
}

// Get always returns a cache miss.
func (Null) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (Null) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (Null) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (Null) Close() error {
	return nil
}

var _ Cache = Null{}
