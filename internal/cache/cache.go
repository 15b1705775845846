package cache

import "sync"

// Cache is a generic thread-safe LRU cache with a cost budget.
// When the summed cost of the entries exceeds the budget, least recently
// used entries are evicted.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*node[K, V]
	order   lruList[K, V]

	budget int64
	used   int64
	cost   func(V) int64

	hits, misses, evictions uint64
}

// New creates a cache holding values of total cost at most budget, as
// measured by cost. A budget of 0 means unlimited; a nil cost counts every
// value as 1.
func New[K comparable, V any](budget int64, cost func(V) int64) *Cache[K, V] {
	if cost == nil {
		cost = func(V) int64 { return 1 }
	}
	return &Cache[K, V]{
		entries: make(map[K]*node[K, V]),
		budget:  budget,
		cost:    cost,
	}
}

// Get looks key up and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.moveToFront(n)
	return n.value, true
}

// Set stores a value in the cache, replacing any previous value for key.
// A value costing more than the whole budget is not stored.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// GetOrCreate returns the cached value or creates and stores it.
// create runs under the cache lock, so each key is created once even when
// callers race.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		c.hits++
		c.order.moveToFront(n)
		return n.value
	}
	c.misses++
	value := create()
	c.set(key, value)
	return value
}

// Delete drops key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.remove(n)
	return true
}

// Clear removes all entries from the cache. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*node[K, V])
	c.order = lruList[K, V]{}
	c.used = 0
}

// Len reports how many values are stored.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Cost:      c.used,
		Budget:    c.budget,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// set stores value. Caller must hold c.mu.
func (c *Cache[K, V]) set(key K, value V) {
	if old, ok := c.entries[key]; ok {
		c.remove(old)
	}
	cost := c.cost(value)
	if c.budget > 0 && cost > c.budget {
		return
	}
	n := &node[K, V]{key: key, value: value, cost: cost}
	c.entries[key] = n
	c.order.pushFront(n)
	c.used += cost

	for c.budget > 0 && c.used > c.budget {
		oldest := c.order.back()
		if oldest == nil || oldest == n {
			break
		}
		c.remove(oldest)
		c.evictions++
	}
}

// remove unlinks n. Caller must hold c.mu.
func (c *Cache[K, V]) remove(n *node[K, V]) {
	c.order.unlink(n)
	delete(c.entries, n.key)
	c.used -= n.cost
}

// Stats describes the occupancy and effectiveness of a Cache.
type Stats struct {
	// Len is the number of stored values.
	Len int
	// Cost is the summed cost of the entries; Budget is its limit.
	Cost, Budget int64
	// Hits and Misses count lookups by Get and GetOrCreate.
	Hits, Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 before any lookup.
	HitRate float64
	// Evictions counts entries dropped to stay within the budget.
	Evictions uint64
}

// node is an entry in the recency list. Head is the most recently used.
type node[K comparable, V any] struct {
	key        K
	value      V
	cost       int64
	prev, next *node[K, V]
}

// lruList is a doubly-linked list; callers handle synchronization.
type lruList[K comparable, V any] struct {
	head, tail *node[K, V]
}

func (l *lruList[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *lruList[K, V]) moveToFront(n *node[K, V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

func (l *lruList[K, V]) back() *node[K, V] {
	return l.tail
}

func (l *lruList[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
