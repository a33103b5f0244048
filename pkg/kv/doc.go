// Package kv provides the key-value backend abstraction used for response
// caching and as a foundation for queue storage.
//
// A single Store interface has two implementations selected once at startup:
// RedisStore when a distributed backend is configured, MemoryStore otherwise.
// Call sites are oblivious to which is active; a missing or expired key is
// reported as ErrNotFound and any backend connectivity error is treated by
// callers as a miss, never as a process-fatal condition.
//
//	store, _ := pick() // RedisStore or MemoryStore, decided at startup
//	val, err := store.Get(ctx, "catalog:featured")
//	if err != nil {
//		// miss (or degraded backend) - recompute and repopulate
//		val = compute()
//		_ = store.Set(ctx, "catalog:featured", val, 5*time.Minute)
//	}
package kv
