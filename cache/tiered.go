package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Source tells where a value returned by [Tiered.GetOrLoad] came from.
type Source int

const (
	SourceLoader Source = iota
	SourceLocal
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	default:
		return "loader"
	}
}

// Hit reports whether the value was served without calling the loader.
func (s Source) Hit() bool {
	return s != SourceLoader
}

// TieredConfig holds the optional collaborators of a [Tiered] cache.
type TieredConfig struct {
	// Name namespaces keys in the remote tier and the failure memo, and
	// labels log entries.
	Name string

	// Remote is the shared tier. Nil disables it.
	Remote Remote

	// Failures memoizes loader errors. Nil disables suppression.
	Failures *Failures

	// LoadTimeout bounds a shared load. Loads run detached from the caller
	// that started them, so one caller giving up does not fail the others.
	// Zero means DefaultLoadTimeout.
	LoadTimeout time.Duration

	Logger *zap.Logger
}

// DefaultLoadTimeout bounds a shared load when TieredConfig.LoadTimeout is
// not set.
const DefaultLoadTimeout = 30 * time.Second

// Tiered is a read-through cache. Lookups check the local [Expiring] cache,
// then the failure memo, then the remote tier, and finally call the loader
// once per key no matter how many callers are waiting for it.
type Tiered[K any, V any] struct {
	name     string
	local    *Expiring[K, V]
	remote   Remote
	failures *Failures
	timeout  time.Duration
	log      *zap.Logger

	group singleflight.Group
}

// NewTiered wraps local with the collaborators in cfg.
func NewTiered[K any, V any](local *Expiring[K, V], cfg TieredConfig) *Tiered[K, V] {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.LoadTimeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Tiered[K, V]{
		name:     cfg.Name,
		local:    local,
		remote:   cfg.Remote,
		failures: cfg.Failures,
		timeout:  timeout,
		log:      log.With(zap.String("cache", cfg.Name)),
	}
}

// Local returns the in-process tier.
func (t *Tiered[K, V]) Local() *Expiring[K, V] {
	return t.local
}

// Name returns the configured name.
func (t *Tiered[K, V]) Name() string {
	return t.name
}

// GetOrLoad returns the cached value for key, calling load on a miss and
// storing its result in both tiers. Concurrent callers for the same key share
// one load, which runs on a context detached from ctx but keeping its values;
// a caller whose ctx ends stops waiting without failing the others. Loader
// errors are returned unchanged and remembered in the failure memo (unless
// they are context errors); while a failure is remembered the loader is not
// called and an error wrapping both [ErrSuppressed] and the remembered error
// is returned.
func (t *Tiered[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, Source, error) {
	if v, ok := t.local.Get(key); ok {
		return v, SourceLocal, nil
	}

	slot := t.local.Key(key)
	shared := t.sharedKey(slot)

	var zero V
	if err := t.failures.Recent(shared); err != nil {
		return zero, SourceLoader, err
	}

	type result struct {
		value  V
		source Source
	}
	ch := t.group.DoChan(slot, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()

		// Another flight may have filled the local tier in the meantime.
		if v, ok := t.local.peek(key); ok {
			return result{v, SourceLocal}, nil
		}
		if v, ok := t.fromRemote(ctx, key, shared); ok {
			return result{v, SourceRemote}, nil
		}

		v, err := load(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				t.failures.Remember(shared, err)
			}
			return nil, err
		}
		t.local.Set(key, v)
		t.toRemote(ctx, shared, v)
		return result{v, SourceLoader}, nil
	})

	select {
	case <-ctx.Done():
		return zero, SourceLoader, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, SourceLoader, res.Err
		}
		r := res.Val.(result)
		return r.value, r.source, nil
	}
}

// Purge clears the local tier and the failure memo. The remote tier is shared
// with other replicas and is left alone.
func (t *Tiered[K, V]) Purge() {
	t.local.Clear()
	t.failures.Clear()
}

// Forget removes key from both tiers and the failure memo.
func (t *Tiered[K, V]) Forget(ctx context.Context, key K) {
	t.local.Delete(key)
	shared := t.sharedKey(t.local.Key(key))
	t.failures.Forget(shared)
	if t.remote != nil {
		t.remote.Del(ctx, shared)
	}
}

func (t *Tiered[K, V]) sharedKey(slot string) string {
	return t.name + ":" + slot
}

func (t *Tiered[K, V]) fromRemote(ctx context.Context, key K, shared string) (V, bool) {
	var v V
	if t.remote == nil {
		return v, false
	}
	raw, remaining, ok := t.remote.Get(ctx, shared)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		t.log.Warn("dropping undecodable remote entry", zap.String("key", shared), zap.Error(err))
		t.remote.Del(ctx, shared)
		return v, false
	}

	// Keep the promoted copy from outliving the shared one.
	insertedAt := t.local.now()
	if remaining > 0 && remaining < t.local.ttl {
		insertedAt = insertedAt.Add(remaining - t.local.ttl)
	}
	t.local.Restore(key, v, insertedAt)
	return v, true
}

func (t *Tiered[K, V]) toRemote(ctx context.Context, shared string, v V) {
	if t.remote == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		t.log.Warn("value not encodable for remote tier", zap.String("key", shared), zap.Error(err))
		return
	}
	t.remote.Set(ctx, shared, raw, t.local.ttl)
}

// TTL is a convenience for callers that need to align other expirations with
// the local tier.
func (t *Tiered[K, V]) TTL() time.Duration {
	return t.local.ttl
}
