package cache

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func redisTier(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	r := NewRedis(RedisOptions{Addr: addr, Prefix: "routecache-test:"})
	t.Cleanup(func() { _ = r.Close() })
	if err := r.Ping(t.Context()); err != nil {
		t.Fatalf("cannot reach Redis at %s: %v", addr, err)
	}
	return r
}

func TestRedis_GetSet(t *testing.T) {
	r := redisTier(t)
	ctx := t.Context()

	key := "getset:" + t.Name()
	t.Cleanup(func() { r.Del(context.Background(), key) })

	if _, _, ok := r.Get(ctx, key); ok {
		t.Fatal("expected miss")
	}

	r.Set(ctx, key, []byte("v1"), 10*time.Second)
	val, remaining, ok := r.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if string(val) != "v1" {
		t.Fatalf("got %q, want %q", val, "v1")
	}
	if remaining <= 0 || remaining > 10*time.Second {
		t.Fatalf("remaining ttl out of range: %v", remaining)
	}
}

func TestTiered_LocalRemoteLoader(t *testing.T) {
	r := redisTier(t)
	ctx := t.Context()
	name := "tiered-" + t.Name()
	t.Cleanup(func() { r.Del(context.Background(), name+":k") })

	var calls atomic.Int32
	load := func(context.Context) (string, error) {
		calls.Add(1)
		return "from-loader", nil
	}

	tc := NewTiered(New[string, string](Config[string]{TTL: 30 * time.Second}), TieredConfig{Name: name, Remote: r})
	if v, src, err := tc.GetOrLoad(ctx, "k", load); err != nil || v != "from-loader" || src != SourceLoader {
		t.Fatalf("GetOrLoad 1: got (%q, %s, %v)", v, src, err)
	}

	// A fresh local tier must be filled from Redis.
	fresh := NewTiered(New[string, string](Config[string]{TTL: 30 * time.Second}), TieredConfig{Name: name, Remote: r})
	if v, src, err := fresh.GetOrLoad(ctx, "k", load); err != nil || v != "from-loader" || src != SourceRemote {
		t.Fatalf("GetOrLoad 2: got (%q, %s, %v)", v, src, err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
}

func TestRedis_FailSoft(t *testing.T) {
	// Unreachable address: operations must neither panic nor fail.
	r := NewRedis(RedisOptions{Addr: "localhost:1"})
	t.Cleanup(func() { _ = r.Close() })

	ctx, cancel := context.WithTimeout(t.Context(), 500*time.Millisecond)
	defer cancel()

	if _, _, ok := r.Get(ctx, "no-such-key"); ok {
		t.Fatal("expected miss")
	}
	r.Set(ctx, "k", []byte("v"), time.Second)
	r.Del(ctx, "k")
}
