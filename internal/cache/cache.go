package cache

import (
	"container/list"
	"fmt"
	"time"
)

// Cache is a bounded key-value store for memoizing metered API responses.
// It combines per-read TTL checks with LRU eviction: every Set and every
// successful Get promotes the key to the most-recent end of an internal
// recency list, and inserting a new key at capacity evicts the entry at the
// least-recent end.
//
// The staleness threshold is supplied by the reader on each Get rather than
// stored with the entry, so two readers may apply different thresholds to the
// same physical entry. A strict reader that triggers lazy deletion causes a
// later, looser reader to miss as well. That ordering sensitivity is intended.
//
// Cache is not goroutine-safe. Wrap it in a Synced when it is shared across
// goroutines; the check-then-act sequences in Get and Set need a single lock
// around the whole table-plus-metrics update.
type Cache struct {
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	metrics Metrics

	// now is replaceable in tests to simulate elapsed time.
	now func() time.Time
}

// entry is the payload held in each recency-list element.
type entry struct {
	key       string
	value     any
	writtenAt time.Time // set on insert and overwrite, never on read
}

// New creates a Cache bounded to maxSize entries.
// maxSize must be at least 1; there is no valid eviction policy for a
// zero-or-negative-capacity table.
func New(maxSize int) (*Cache, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("cache: max size must be positive, got %d", maxSize)
	}
	return &Cache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
		now:     time.Now,
	}, nil
}

// Get returns the value stored under key if it was written no longer than
// maxAge ago. A missing key counts as a miss. An entry older than maxAge is
// removed and counts as a miss; expiration is lazy, there is no background
// sweep. On a hit the entry is promoted to most-recent without touching its
// write timestamp.
//
// A negative maxAge is legal and simply misses every time, since elapsed time
// is never negative.
func (c *Cache) Get(key string, maxAge time.Duration) (any, bool) {
	el, ok := c.items[key]
	if !ok {
		c.metrics.Misses++
		return nil, false
	}

	e := el.Value.(*entry)
	if c.now().Sub(e.writtenAt) > maxAge {
		c.remove(el)
		c.metrics.Misses++
		return nil, false
	}

	c.order.MoveToFront(el)
	c.metrics.Hits++
	return e.value, true
}

// Set stores value under key. An existing key is overwritten in place: its
// timestamp resets to now and it is promoted to most-recent, with no effect
// on capacity. A new key inserted at capacity first evicts the single
// least-recently-used entry, regardless of whether that entry is stale.
// Set never touches the hit/miss counters.
func (c *Cache) Set(key string, value any) {
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.writtenAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		c.remove(c.order.Back())
	}

	c.items[key] = c.order.PushFront(&entry{
		key:       key,
		value:     value,
		writtenAt: c.now(),
	})
}

// Invalidate removes key and reports whether it was present.
func (c *Cache) Invalidate(key string) bool {
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.remove(el)
	return true
}

// Clear removes every entry. Hit/miss counters are preserved.
func (c *Cache) Clear() {
	clear(c.items)
	c.order.Init()
}

// Size returns the current entry count.
func (c *Cache) Size() int {
	return c.order.Len()
}

// Stats returns a snapshot of the hit/miss counters.
func (c *Cache) Stats() Metrics {
	return c.metrics
}

// remove drops an element from both the recency list and the lookup table.
func (c *Cache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
