package cache

import (
	"sync"
	"time"
)

// Synced wraps a Cache with a single mutex so it can be shared across
// goroutines. The lock covers the full table-plus-metrics-plus-eviction
// sequence of each operation; the staleness check in Get and the capacity
// check in Set are not individually atomic without it.
type Synced struct {
	mu sync.Mutex
	c  *Cache
}

// NewSynced creates a goroutine-safe cache bounded to maxSize entries.
func NewSynced(maxSize int) (*Synced, error) {
	c, err := New(maxSize)
	if err != nil {
		return nil, err
	}
	return &Synced{c: c}, nil
}

// Get behaves like Cache.Get under the wrapper's lock.
func (s *Synced) Get(key string, maxAge time.Duration) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Get(key, maxAge)
}

// Set behaves like Cache.Set under the wrapper's lock.
func (s *Synced) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Set(key, value)
}

// Invalidate behaves like Cache.Invalidate under the wrapper's lock.
func (s *Synced) Invalidate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Invalidate(key)
}

// Clear behaves like Cache.Clear under the wrapper's lock.
func (s *Synced) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Clear()
}

// Size returns the current entry count.
func (s *Synced) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Size()
}

// Stats returns a snapshot of the hit/miss counters.
func (s *Synced) Stats() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Stats()
}
