package contextx

import (
	"slices"
	"testing"
)

func TestActorRoundTrip(t *testing.T) {
	a := Actor{Tenant: "acme", KeyID: "dispatch-1", Scopes: []string{"lookup", "admin"}}

	got, ok := ActorFromContext(WithActor(t.Context(), a))
	if !ok {
		t.Fatal("expected actor in context")
	}
	if got.Tenant != a.Tenant || got.KeyID != a.KeyID {
		t.Fatalf("got %+v, want %+v", got, a)
	}
	if !slices.Equal(got.Scopes, a.Scopes) {
		t.Fatalf("Scopes: got %v, want %v", got.Scopes, a.Scopes)
	}
}

func TestActorMissing(t *testing.T) {
	if _, ok := ActorFromContext(t.Context()); ok {
		t.Fatal("expected no actor in empty context")
	}
	if got := TenantFromContext(t.Context()); got != "" {
		t.Fatalf("expected empty tenant, got %q", got)
	}
}

func TestActorHasScope(t *testing.T) {
	a := Actor{Scopes: []string{"lookup"}}
	if !a.HasScope("lookup") {
		t.Fatal("expected lookup scope")
	}
	if a.HasScope("admin") {
		t.Fatal("unexpected admin scope")
	}
}

func TestTenantFromContext(t *testing.T) {
	ctx := WithActor(t.Context(), Actor{Tenant: "acme"})
	if got := TenantFromContext(ctx); got != "acme" {
		t.Fatalf("got %q, want %q", got, "acme")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(t.Context(), "req-abc-123")
	if got := RequestIDFromContext(ctx); got != "req-abc-123" {
		t.Fatalf("got %q, want %q", got, "req-abc-123")
	}
	if got := RequestIDFromContext(t.Context()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestGroupRoundTrip(t *testing.T) {
	ctx := WithGroup(t.Context(), "admin")
	if got := GroupFromContext(ctx); got != "admin" {
		t.Fatalf("got %q, want %q", got, "admin")
	}
	if got := GroupFromContext(t.Context()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestTags(t *testing.T) {
	ctx, tags := WithTags(t.Context())
	TagsFromContext(ctx).Set("tenant", "acme")
	tags.Set("cache", "hit")

	got := tags.Values()
	if got["tenant"] != "acme" || got["cache"] != "hit" {
		t.Fatalf("unexpected tags %v", got)
	}

	got["tenant"] = "mutated"
	if tags.Values()["tenant"] != "acme" {
		t.Fatal("Values must return a copy")
	}
}

func TestTagsNilSafe(t *testing.T) {
	tags := TagsFromContext(t.Context())
	tags.Set("k", "v")
	if tags.Values() != nil {
		t.Fatal("nil Tags should report no values")
	}
}
