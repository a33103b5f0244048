package kv

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is the in-process Store implementation. Entries carry an
// absolute expiry instant checked lazily on every read; correctness does not
// depend on background sweeping. Data is scoped to the running process and
// lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	janitor *time.Ticker
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates an in-process store. A background janitor removes
// expired entries every minute to bound memory growth; reads never rely on it.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		janitor: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Get returns the stored value or ErrNotFound when absent or expired.
// Expired entries are removed on access.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have replaced
		// the entry with a live one.
		if current, ok := s.entries[key]; ok && current.expired(time.Now()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	// Copy to prevent callers from mutating stored data.
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores value under key. Zero ttl means no expiry.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes a key; absent keys are a no-op.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including not-yet-swept expired ones.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the background janitor. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.janitor.Stop()
	})
	return nil
}

func (s *MemoryStore) sweepLoop() {
	for {
		select {
		case <-s.janitor.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
		}
	}
}
