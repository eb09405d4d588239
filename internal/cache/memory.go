package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMemoryCapacity = 1024
	defaultMemoryTTL      = time.Minute
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process LRU. maxTTL bounds every entry regardless of
// the TTL requested in Set.
type MemoryStore struct {
	entries *expirable.LRU[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryStore constructs a MemoryStore holding at most capacity entries.
func NewMemoryStore(capacity int, maxTTL time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	if maxTTL <= 0 {
		maxTTL = defaultMemoryTTL
	}
	return &MemoryStore{
		entries: expirable.NewLRU[string, memoryEntry](capacity, nil, maxTTL),
		now:     time.Now,
	}
}

// Set stores a copy of value.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries.Add(key, entry)
	return nil
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.entries.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// Delete removes keys, ignoring missing ones.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.entries.Remove(key)
	}
	return nil
}
