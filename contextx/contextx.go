// Package contextx carries request-scoped values between the transport
// middleware and the lookup handlers: the authenticated actor, the request ID
// and the matched policy group.
package contextx

import (
	"context"
	"slices"
)

type contextKey int

const (
	actorKey contextKey = iota
	requestIDKey
	groupKey
)

// Actor is the authenticated caller. Lookups are attributed to Tenant in logs
// and spans; Scopes gate administrative calls.
//
//	actor := contextx.Actor{Tenant: "acme", KeyID: "dispatch-1", Scopes: []string{"lookup"}}
//	ctx = contextx.WithActor(ctx, actor)
type Actor struct {
	Tenant string
	KeyID  string
	Scopes []string
}

// HasScope reports whether a carries scope.
func (a Actor) HasScope(scope string) bool {
	return slices.Contains(a.Scopes, scope)
}

// WithActor returns a derived context that carries a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext extracts the Actor stored in ctx.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// TenantFromContext returns the tenant of the actor in ctx, or "".
func TenantFromContext(ctx context.Context) string {
	a, _ := ActorFromContext(ctx)
	return a.Tenant
}

// WithRequestID returns a derived context that carries id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithGroup returns a derived context that carries the policy group name.
func WithGroup(ctx context.Context, group string) context.Context {
	return context.WithValue(ctx, groupKey, group)
}

// GroupFromContext returns the policy group stored in ctx, or "".
func GroupFromContext(ctx context.Context) string {
	g, _ := ctx.Value(groupKey).(string)
	return g
}
