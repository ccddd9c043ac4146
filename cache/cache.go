// Package cache provides the memoization layer used in front of expensive,
// idempotent lookups: an in-process expiring LRU ([Expiring]), a fail-soft
// shared tier backed by Redis ([Redis]), a short-lived memo of recent loader
// failures backed by ristretto ([Failures]) and a read-through combination of
// all three ([Tiered]).
package cache

import (
	"context"
	"time"
)

// EmptyKey is the slot used for keys that cannot be normalized. Callers that
// supply their own normalizer should map malformed keys to it as well.
const EmptyKey = "<empty>"

// Remote is the contract of a shared cache tier. Implementations must fail
// soft: an unreachable backend behaves like a miss on reads and silently
// drops writes.
type Remote interface {
	// Get returns the stored bytes and the remaining time to live. A zero
	// remaining TTL means the entry has no expiration.
	Get(ctx context.Context, key string) (val []byte, remaining time.Duration, ok bool)

	// Set stores val under key for ttl. A zero TTL means no expiration.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)

	// Del removes the given keys.
	Del(ctx context.Context, keys ...string)
}

// EvictReason tells an [Observer] why an entry left the cache.
type EvictReason int

const (
	// EvictCapacity means the entry was the least recently used one when the
	// cache grew past its capacity.
	EvictCapacity EvictReason = iota
	// EvictExpired means the entry outlived its TTL and was dropped on access
	// or by the sweeper.
	EvictExpired
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Observer receives cache events. Methods are called with the cache lock held
// and must not call back into the cache.
type Observer interface {
	Hit()
	Miss()
	Evicted(reason EvictReason)
}

type nopObserver struct{}

func (nopObserver) Hit()                {}
func (nopObserver) Miss()               {}
func (nopObserver) Evicted(EvictReason) {}

// quietObserver forwards evictions only.
type quietObserver struct{ Observer }

func (quietObserver) Hit()  {}
func (quietObserver) Miss() {}
