package interceptors

import (
	"context"
	"errors"

	"github.com/fieldline/routecache/auth"
	"github.com/fieldline/routecache/contextx"
	"github.com/fieldline/routecache/policy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var (
	errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")
	errForbidden       = status.Error(codes.PermissionDenied, "missing required scope")
)

// authorize runs fn and applies the policy matched for fullMethod. Methods
// without AuthRequired or Scope accept anonymous calls, but credentials that
// are present must still be valid.
func authorize(ctx context.Context, fn auth.AuthFunc, res *policy.Resolver, fullMethod string) (context.Context, error) {
	m, _ := res.Resolve(fullMethod)
	required := m.Policy.AuthRequired || m.Policy.Scope != ""

	md, _ := metadata.FromIncomingContext(ctx)
	authed, err := fn(ctx, fullMethod, md)
	switch {
	case err == nil:
	case !required && errors.Is(err, auth.ErrMissingKey):
		return ctx, nil
	default:
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		return nil, errUnauthenticated
	}

	a, ok := contextx.ActorFromContext(authed)
	if required && !ok {
		return nil, errUnauthenticated
	}
	if m.Policy.Scope != "" && !a.HasScope(m.Policy.Scope) {
		return nil, errForbidden
	}
	if ok {
		contextx.TagsFromContext(authed).Set("tenant", a.Tenant)
	}
	return authed, nil
}

// AuthUnary authenticates calls with fn and enforces the AuthRequired and
// Scope settings of the policy resolved for each method. res may be nil.
func AuthUnary(fn auth.AuthFunc, res *policy.Resolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authorize(ctx, fn, res, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// AuthStream is the streaming counterpart of [AuthUnary].
func AuthStream(fn auth.AuthFunc, res *policy.Resolver) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authorize(ss.Context(), fn, res, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, withStreamContext(ss, ctx))
	}
}
