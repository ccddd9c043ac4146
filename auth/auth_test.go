package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldline/routecache/auth"
	"github.com/fieldline/routecache/contextx"
	"github.com/fieldline/routecache/interceptors"
	"github.com/fieldline/routecache/policy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func testKeys() *auth.KeyStore {
	return auth.APIKeys(map[string]contextx.Actor{
		"acme-secret":  {Tenant: "acme", KeyID: "acme-1", Scopes: []string{"lookup"}},
		"admin-secret": {Tenant: "ops", KeyID: "ops-1", Scopes: []string{"lookup", "admin"}},
	})
}

func withKey(ctx context.Context, key string) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(auth.MetadataKey, key))
}

func requireAll() *policy.Resolver {
	return policy.NewResolver(
		policy.Group("admin").Prefix("/routecache.Admin/").Policy(policy.Policy{AuthRequired: true, Scope: "admin"}),
		policy.Group("lookup").Prefix("/routecache.Lookup/").Policy(policy.Policy{AuthRequired: true}),
	)
}

func TestKeyStore_Authenticate(t *testing.T) {
	ks := testKeys()

	a, err := ks.Authenticate("acme-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Tenant != "acme" {
		t.Fatalf("got tenant %q, want acme", a.Tenant)
	}
	if _, err := ks.Authenticate(""); !errors.Is(err, auth.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	if _, err := ks.Authenticate("nope"); !errors.Is(err, auth.ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func TestAuthUnary_MissingKey(t *testing.T) {
	ic := interceptors.AuthUnary(testKeys().AuthFunc(), requireAll())

	handler := func(_ context.Context, _ any) (any, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	}

	_, err := ic(t.Context(), "req", &grpc.UnaryServerInfo{FullMethod: "/routecache.Lookup/Geocode"}, handler)
	if st, _ := status.FromError(err); st.Code() != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestAuthUnary_ValidKey(t *testing.T) {
	ic := interceptors.AuthUnary(testKeys().AuthFunc(), requireAll())

	var captured contextx.Actor
	handler := func(ctx context.Context, _ any) (any, error) {
		a, ok := contextx.ActorFromContext(ctx)
		if !ok {
			t.Fatal("expected actor in context")
		}
		captured = a
		return "ok", nil
	}

	ctx := withKey(t.Context(), "acme-secret")
	resp, err := ic(ctx, "req", &grpc.UnaryServerInfo{FullMethod: "/routecache.Lookup/Geocode"}, handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "ok" {
		t.Fatalf("expected %q, got %v", "ok", resp)
	}
	if captured.Tenant != "acme" {
		t.Fatalf("expected tenant %q, got %q", "acme", captured.Tenant)
	}
}

func TestAuthUnary_MissingScope(t *testing.T) {
	ic := interceptors.AuthUnary(testKeys().AuthFunc(), requireAll())

	ctx := withKey(t.Context(), "acme-secret")
	_, err := ic(ctx, "req", &grpc.UnaryServerInfo{FullMethod: "/routecache.Admin/Purge"}, func(context.Context, any) (any, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	})
	if st, _ := status.FromError(err); st.Code() != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}

func TestAuthUnary_AdminScope(t *testing.T) {
	ic := interceptors.AuthUnary(testKeys().AuthFunc(), requireAll())

	ctx := withKey(t.Context(), "admin-secret")
	_, err := ic(ctx, "req", &grpc.UnaryServerInfo{FullMethod: "/routecache.Admin/Purge"}, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthUnary_OptionalWhenNoPolicy(t *testing.T) {
	ic := interceptors.AuthUnary(testKeys().AuthFunc(), nil)

	_, err := ic(t.Context(), "req", &grpc.UnaryServerInfo{FullMethod: "/routecache.Lookup/Geocode"}, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("anonymous call to an open method should pass: %v", err)
	}

	// A wrong key is rejected even where auth is optional.
	_, err = ic(withKey(t.Context(), "wrong"), "req", &grpc.UnaryServerInfo{FullMethod: "/routecache.Lookup/Geocode"}, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	if st, _ := status.FromError(err); st.Code() != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestAuthUnary_StatusErrorPassthrough(t *testing.T) {
	fn := func(ctx context.Context, _ string, _ metadata.MD) (context.Context, error) {
		return ctx, status.Error(codes.PermissionDenied, "forbidden")
	}
	ic := interceptors.AuthUnary(fn, requireAll())

	_, err := ic(t.Context(), "req", &grpc.UnaryServerInfo{FullMethod: "/routecache.Lookup/Geocode"}, func(context.Context, any) (any, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	})
	if st, _ := status.FromError(err); st.Code() != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}
