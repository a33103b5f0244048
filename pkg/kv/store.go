package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or its entry has expired.
// Call sites treat it as a cache miss, never as a fatal condition.
var ErrNotFound = errors.New("kv: key not found")

// Store is a minimal key-value interface shared by the read-through response
// cache and the queue storage. Two implementations exist: RedisStore (shared
// across process instances) and MemoryStore (single process, lost on
// restart). The implementation is chosen once at startup; call sites hold
// the interface and never branch on the backend.
type Store interface {
	// Get returns the value for key, or ErrNotFound when the key is absent
	// or expired. Backend connectivity errors are returned as-is; callers
	// degrade them to a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL. A zero TTL means the
	// entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
