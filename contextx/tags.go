package contextx

import (
	"context"
	"maps"
	"sync"
)

const tagsKey contextKey = groupKey + 1

// Tags collects key/value annotations while a request travels down the
// middleware chain, so that an outer access log can report what inner layers
// learned (tenant, policy group, cache result).
type Tags struct {
	mu sync.Mutex
	kv map[string]string
}

// WithTags returns a derived context carrying a fresh, empty Tags.
func WithTags(ctx context.Context) (context.Context, *Tags) {
	t := &Tags{kv: make(map[string]string)}
	return context.WithValue(ctx, tagsKey, t), t
}

// TagsFromContext returns the Tags in ctx. The result may be nil; all Tags
// methods accept a nil receiver.
func TagsFromContext(ctx context.Context) *Tags {
	t, _ := ctx.Value(tagsKey).(*Tags)
	return t
}

// Set records key=value.
func (t *Tags) Set(key, value string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kv[key] = value
}

// Values returns a copy of the recorded tags.
func (t *Tags) Values() map[string]string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.kv)
}
