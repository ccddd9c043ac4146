// Package auth authenticates tenants by API key. The same [KeyStore] backs
// the gRPC interceptor (x-api-key metadata) and the HTTP API (X-API-Key
// header).
package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/fieldline/routecache/contextx"
	"google.golang.org/grpc/metadata"
)

// MetadataKey is the gRPC metadata key carrying the API key. HTTP uses the
// canonical header form X-Api-Key.
const MetadataKey = "x-api-key"

var (
	// ErrMissingKey means the caller sent no credentials.
	ErrMissingKey = errors.New("auth: missing api key")
	// ErrUnknownKey means the credentials do not match any tenant.
	ErrUnknownKey = errors.New("auth: unknown api key")
)

// AuthFunc authenticates a gRPC call. On success it returns a context that
// carries the caller's [contextx.Actor].
type AuthFunc func(ctx context.Context, fullMethod string, md metadata.MD) (context.Context, error)

// KeyStore maps API keys to tenant actors.
type KeyStore struct {
	keys map[string]contextx.Actor
}

// APIKeys creates a KeyStore. The map is copied.
func APIKeys(keys map[string]contextx.Actor) *KeyStore {
	s := &KeyStore{keys: make(map[string]contextx.Actor, len(keys))}
	for k, a := range keys {
		if k != "" {
			s.keys[k] = a
		}
	}
	return s
}

// Authenticate returns the actor registered for key.
func (s *KeyStore) Authenticate(key string) (contextx.Actor, error) {
	if key == "" {
		return contextx.Actor{}, ErrMissingKey
	}
	for k, a := range s.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return a, nil
		}
	}
	return contextx.Actor{}, ErrUnknownKey
}

// AuthFunc adapts the store to the gRPC auth interceptor.
func (s *KeyStore) AuthFunc() AuthFunc {
	return func(ctx context.Context, _ string, md metadata.MD) (context.Context, error) {
		var key string
		if vals := md.Get(MetadataKey); len(vals) > 0 {
			key = vals[0]
		}
		a, err := s.Authenticate(key)
		if err != nil {
			return ctx, err
		}
		return contextx.WithActor(ctx, a), nil
	}
}
