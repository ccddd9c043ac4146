package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

// ErrSuppressed is returned by [Tiered.GetOrLoad] when the loader failed for
// the same key within the failure TTL and is not called again.
var ErrSuppressed = errors.New("cache: lookup suppressed after recent failure")

// Failures remembers recent loader failures so that a provider which cannot
// answer for a key is not asked again on every request. It is backed by
// ristretto; entries cost 1 and expire after the configured TTL. The original
// error is kept, so a suppressed lookup still matches it with errors.Is.
type Failures struct {
	rc  *ristretto.Cache[string, error]
	ttl time.Duration
	log *zap.Logger
}

// NewFailures creates a failure memo holding at most maxEntries keys, each for
// ttl. log receives debug entries for failures the memo declined to store;
// nil discards them.
func NewFailures(maxEntries int64, ttl time.Duration, log *zap.Logger) (*Failures, error) {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	rc, err := ristretto.NewCache(&ristretto.Config[string, error]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: failure memo: %w", err)
	}
	return &Failures{rc: rc, ttl: ttl, log: log.Named("failures")}, nil
}

// Remember records that loading key failed with err. It reports whether the
// failure was stored; ristretto may reject new keys once the memo is full.
func (f *Failures) Remember(key string, err error) bool {
	if f == nil || f.ttl <= 0 || err == nil {
		return false
	}
	stored := f.rc.SetWithTTL(key, err, 1, f.ttl)
	if stored {
		f.rc.Wait()
		_, stored = f.rc.Get(key)
	}
	if !stored {
		f.log.Debug("failure not remembered, memo rejected the key", zap.String("key", key), zap.Error(err))
	}
	return stored
}

// Recent returns an error wrapping both ErrSuppressed and the original
// failure when key failed within the TTL. Otherwise it returns nil.
func (f *Failures) Recent(key string) error {
	if f == nil {
		return nil
	}
	cause, ok := f.rc.Get(key)
	if !ok {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSuppressed, cause)
}

// Forget drops the failure recorded for key.
func (f *Failures) Forget(key string) {
	if f == nil {
		return
	}
	f.rc.Del(key)
}

// Clear drops every recorded failure.
func (f *Failures) Clear() {
	if f == nil {
		return
	}
	f.rc.Clear()
}

// Close releases the ristretto goroutines.
func (f *Failures) Close() {
	if f == nil {
		return
	}
	f.rc.Close()
}
