// Package lru implements the bounded, insertion-ordered in-memory dedup
// cache that fronts the persistent processed-messages table.
package lru

import "container/list"

// DefaultCapacity is the default number of entries retained.
const DefaultCapacity = 10000

// Cache is a bounded set of message ids, evicting the oldest insertion
// when full.
type Cache struct {
	capacity int
	ll       *list.List
	index    map[string]*list.Element
}

// New constructs a Cache with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Contains reports whether id is present.
func (c *Cache) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Add inserts id, evicting the oldest entry if the cache is at capacity.
// Re-adding an existing id is a no-op (it does not refresh recency: this
// is a dedup cache, not an LFU/LRU access cache).
func (c *Cache) Add(id string) {
	if _, ok := c.index[id]; ok {
		return
	}
	elem := c.ll.PushBack(id)
	c.index[id] = elem
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Front()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.index, oldest.Value.(string))
		}
	}
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int { return c.ll.Len() }
