package policy

import (
	"testing"
	"time"
)

func TestResolve_ExactMatch(t *testing.T) {
	r := NewResolver(
		Group("admin").
			Exact("/routecache.Admin/Purge").
			Policy(Policy{AuthRequired: true, Scope: "admin"}),
	)

	m, ok := r.Resolve("/routecache.Admin/Purge")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Group != "admin" {
		t.Fatalf("got group %q, want %q", m.Group, "admin")
	}
	if !m.Policy.AuthRequired || m.Policy.Scope != "admin" {
		t.Fatalf("unexpected policy %+v", m.Policy)
	}
}

func TestResolve_PrefixMatch(t *testing.T) {
	r := NewResolver(
		Group("lookup").
			Prefix("/routecache.Lookup/").
			Policy(Policy{Timeout: 5 * time.Second}),
	)

	m, ok := r.Resolve("/routecache.Lookup/Geocode")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Policy.Timeout != 5*time.Second {
		t.Fatalf("got timeout %v, want %v", m.Policy.Timeout, 5*time.Second)
	}
}

func TestResolve_HTTPRoutes(t *testing.T) {
	r := NewResolver(
		Group("admin").Prefix("/v1/cache").Policy(Policy{Scope: "admin"}),
		Group("lookup").Prefix("/v1/").Policy(Policy{AuthRequired: true}),
	)

	if m, _ := r.Resolve("/v1/cache/geocode"); m.Group != "admin" {
		t.Fatalf("got %q, want admin", m.Group)
	}
	if m, _ := r.Resolve("/v1/geocode"); m.Group != "lookup" {
		t.Fatalf("got %q, want lookup", m.Group)
	}
}

func TestResolve_RegexMatch(t *testing.T) {
	r := NewResolver(Group("health").Regex(`/grpc\.health\.`))

	if _, ok := r.Resolve("/grpc.health.v1.Health/Check"); !ok {
		t.Fatal("expected a regex match")
	}
}

func TestResolve_NoMatch(t *testing.T) {
	r := NewResolver(Group("admin").Exact("/routecache.Admin/Purge"))

	if _, ok := r.Resolve("/routecache.Lookup/Geocode"); ok {
		t.Fatal("expected no match")
	}
}

func TestResolve_NilResolver(t *testing.T) {
	var r *Resolver
	if _, ok := r.Resolve("/routecache.Lookup/Geocode"); ok {
		t.Fatal("nil resolver must not match")
	}
}

func TestResolve_ExactBeatsPrefix(t *testing.T) {
	r := NewResolver(
		Group("prefix-group").Prefix("/routecache.Lookup/").Policy(Policy{Timeout: time.Second}),
		Group("exact-group").Exact("/routecache.Lookup/DriveTime").Policy(Policy{Timeout: 2 * time.Second}),
	)

	m, ok := r.Resolve("/routecache.Lookup/DriveTime")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Group != "exact-group" {
		t.Fatalf("exact should beat prefix: got %q", m.Group)
	}
}

func TestResolve_PrefixBeatsRegex(t *testing.T) {
	r := NewResolver(
		Group("regex-group").Regex(`/routecache\.Lookup/`),
		Group("prefix-group").Prefix("/routecache.Lookup/"),
	)

	if m, _ := r.Resolve("/routecache.Lookup/Geocode"); m.Group != "prefix-group" {
		t.Fatalf("prefix should beat regex: got %q", m.Group)
	}
}

func TestResolve_LongerPrefixWins(t *testing.T) {
	r := NewResolver(
		Group("short").Prefix("/routecache."),
		Group("long").Prefix("/routecache.Admin/"),
	)

	if m, _ := r.Resolve("/routecache.Admin/Stats"); m.Group != "long" {
		t.Fatalf("longer prefix should win: got %q", m.Group)
	}
}

func TestResolve_FirstRegisteredWinsTie(t *testing.T) {
	r := NewResolver(
		Group("first").Exact("/routecache.Admin/Stats"),
		Group("second").Exact("/routecache.Admin/Stats"),
	)

	if m, _ := r.Resolve("/routecache.Admin/Stats"); m.Group != "first" {
		t.Fatalf("first-registered group should win: got %q", m.Group)
	}
}

func TestRateLimitRule_PerSecond(t *testing.T) {
	if got := (RateLimitRule{Rate: 120, Window: time.Minute}).PerSecond(); got != 2 {
		t.Fatalf("got %v, want 2", got)
	}
	if got := (RateLimitRule{Rate: 7}).PerSecond(); got != 7 {
		t.Fatalf("zero window: got %v, want 7", got)
	}
}
