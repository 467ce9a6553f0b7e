package memocore

import (
	"context"
	"time"
)

// Store is the TTL key-value contract the coordinator memoizes into.
//
// Implementations must be safe for concurrent use. Set replaces the whole
// entry atomically so a reader observes either the old or the new value.
type Store interface {
	Driver() Driver
	Ready(ctx context.Context) error
	// Exists reports whether a live entry is present. An entry observed as
	// expired is removed as a side effect.
	Exists(ctx context.Context, key string) (bool, error)
	// Get returns the stored value; ok=false signals a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set inserts or overwrites key with expiry now+ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
