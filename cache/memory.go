package cache

import (
	"context"
	"sync"
	"time"
)

// memoryEntry holds a stored value with its expiry.
type memoryEntry struct {
	value   []byte
	expires time.Time // zero means the entry never expires
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryStore is a thread-safe in-memory store with per-entry TTL.
// It has no set commands, so registries kept in it are updated under a lock.
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	clock   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
}

// Get retrieves a value. Expired entries are removed and reported as a miss.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if entry.expired(s.clock()) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have replaced it.
		if current, ok := s.entries[key]; ok && current.expired(s.clock()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}

	return append([]byte(nil), entry.value...), true, nil
}

// Put stores a value that expires after ttl. A non-positive ttl stores an
// entry that is already expired.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.set(key, value, s.clock().Add(ttl))
	return nil
}

// Forever stores a value with no expiry.
func (s *MemoryStore) Forever(ctx context.Context, key string, value []byte) error {
	s.set(key, value, time.Time{})
	return nil
}

// Forget removes a key.
func (s *MemoryStore) Forget(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) set(key string, value []byte, expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		value:   append([]byte(nil), value...),
		expires: expires,
	}
}

// Len returns the number of entries in the store (including expired ones).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries from the store.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
}
