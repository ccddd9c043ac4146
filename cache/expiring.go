package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Expiring is a bounded key-value cache with a uniform time-to-live.
//
// Keys of any type are projected onto strings by a normalizer; two keys that
// normalize to the same string share one slot. Entries expire a fixed TTL
// after they were written (absolute expiration: reading an entry refreshes its
// recency but not its age). Expiry is lazy, so Len may count entries that a
// Get would drop. When a capacity is set, writing past it evicts the least
// recently read or written entry.
//
// All methods are safe for concurrent use; a single mutex guards both the
// index and the recency list.
type Expiring[K any, V any] struct {
	mu sync.Mutex

	ttl       time.Duration
	capacity  int
	normalize func(K) string
	now       func() time.Time
	observer  Observer

	items map[string]*list.Element
	order *list.List // Front = least recently used, Back = most recently used
}

type entry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// Config describes an [Expiring] cache.
type Config[K any] struct {
	// TTL is the lifetime of every entry, measured from the write that
	// stored it.
	TTL time.Duration

	// Capacity bounds the number of stored entries. Values <= 0 leave the
	// cache unbounded.
	Capacity int

	// Normalize projects a key onto its slot name. Nil means a direct string
	// conversion.
	Normalize func(K) string

	// Observer receives hit, miss and eviction events. Optional.
	Observer Observer

	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// New creates an Expiring cache from cfg.
func New[K any, V any](cfg Config[K]) *Expiring[K, V] {
	c := &Expiring[K, V]{
		ttl:       cfg.TTL,
		capacity:  cfg.Capacity,
		normalize: cfg.Normalize,
		now:       cfg.Now,
		observer:  cfg.Observer,
		items:     make(map[string]*list.Element),
		order:     list.New(),
	}
	if c.normalize == nil {
		c.normalize = defaultNormalize[K]
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	return c
}

// defaultNormalize is a direct string conversion.
func defaultNormalize[K any](k K) string {
	switch v := any(k).(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Key returns the slot name k normalizes to. A normalizer that panics
// yields [EmptyKey].
func (c *Expiring[K, V]) Key(k K) (key string) {
	defer func() {
		if r := recover(); r != nil {
			key = EmptyKey
		}
	}()
	return c.normalize(k)
}

// TTL returns the lifetime applied to every entry.
func (c *Expiring[K, V]) TTL() time.Duration {
	return c.ttl
}

// Capacity returns the configured bound, or 0 when unbounded.
func (c *Expiring[K, V]) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return max(c.capacity, 0)
}

// Get returns the live value stored under k and marks it most recently used.
// An expired entry is removed and reported as a miss.
func (c *Expiring[K, V]) Get(k K) (V, bool) {
	return c.get(k, c.observer)
}

// peek is Get without hit or miss events, for re-checks that must not be
// counted twice.
func (c *Expiring[K, V]) peek(k K) (V, bool) {
	return c.get(k, quietObserver{c.observer})
}

func (c *Expiring[K, V]) get(k K, obs Observer) (V, bool) {
	key := c.Key(k)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		obs.Miss()
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.expired(e, c.now()) {
		c.removeLocked(el)
		obs.Evicted(EvictExpired)
		obs.Miss()
		var zero V
		return zero, false
	}

	c.order.MoveToBack(el)
	obs.Hit()
	return e.value, true
}

// Has reports whether k holds a live value. It has the same side effects as
// Get: expired entries are dropped and live ones become most recently used.
func (c *Expiring[K, V]) Has(k K) bool {
	_, ok := c.Get(k)
	return ok
}

// Set stores value under k as the most recently used entry and restarts its
// TTL. If the cache is over capacity afterwards, least recently used entries
// are evicted until it fits.
func (c *Expiring[K, V]) Set(k K, value V) {
	key := c.Key(k)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLocked(key, value, c.now())
}

// Restore stores value under k as if it had been written at insertedAt, so
// that it expires together with the copy it was read from. Values that are
// already past their TTL are ignored.
func (c *Expiring[K, V]) Restore(k K, value V, insertedAt time.Time) {
	key := c.Key(k)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if insertedAt.After(now) {
		insertedAt = now
	}
	if now.Sub(insertedAt) > c.ttl {
		return
	}
	c.setLocked(key, value, insertedAt)
}

func (c *Expiring[K, V]) setLocked(key string, value V, insertedAt time.Time) {
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.insertedAt = insertedAt
		c.order.MoveToBack(el)
	} else {
		c.items[key] = c.order.PushBack(&entry[V]{
			key:        key,
			value:      value,
			insertedAt: insertedAt,
		})
	}
	c.evictLocked()
}

// Delete removes k and reports whether an entry was present.
func (c *Expiring[K, V]) Delete(k K) bool {
	key := c.Key(k)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeLocked(el)
	return true
}

// Clear drops every entry.
func (c *Expiring[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of stored entries, including expired ones that
// have not been accessed since they expired.
func (c *Expiring[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the stored slot names from most to least recently used.
func (c *Expiring[K, V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, c.order.Len())
	for el := c.order.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(*entry[V]).key)
	}
	return out
}

// Resize changes the capacity and evicts down to it immediately. Values <= 0
// make the cache unbounded.
func (c *Expiring[K, V]) Resize(capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capacity = capacity
	c.evictLocked()
}

// PurgeExpired removes every expired entry and returns how many were dropped.
func (c *Expiring[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*entry[V]), now) {
			c.removeLocked(el)
			c.observer.Evicted(EvictExpired)
			removed++
		}
		el = next
	}
	return removed
}

func (c *Expiring[K, V]) expired(e *entry[V], now time.Time) bool {
	return now.Sub(e.insertedAt) > c.ttl
}

func (c *Expiring[K, V]) evictLocked() {
	if c.capacity <= 0 {
		return
	}
	for len(c.items) > c.capacity {
		el := c.order.Front()
		if el == nil {
			return
		}
		c.removeLocked(el)
		c.observer.Evicted(EvictCapacity)
	}
}

func (c *Expiring[K, V]) removeLocked(el *list.Element) {
	delete(c.items, el.Value.(*entry[V]).key)
	c.order.Remove(el)
}
