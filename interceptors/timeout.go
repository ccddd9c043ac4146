package interceptors

import (
	"context"
	"time"

	"github.com/fieldline/routecache/contextx"
	"github.com/fieldline/routecache/policy"
	"google.golang.org/grpc"
)

// scope applies the matched policy group and its timeout to ctx. Calls whose
// policy has no timeout get fallback; zero means no deadline is added.
func scope(ctx context.Context, res *policy.Resolver, fallback time.Duration, fullMethod string) (context.Context, context.CancelFunc) {
	timeout := fallback
	if m, ok := res.Resolve(fullMethod); ok {
		ctx = contextx.WithGroup(ctx, m.Group)
		contextx.TagsFromContext(ctx).Set("group", m.Group)
		if m.Policy.Timeout > 0 {
			timeout = m.Policy.Timeout
		}
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// TimeoutUnary bounds each call by its policy timeout and records the
// policy group in the context.
func TimeoutUnary(res *policy.Resolver, fallback time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, cancel := scope(ctx, res, fallback, info.FullMethod)
		defer cancel()
		return handler(ctx, req)
	}
}

// TimeoutStream is the streaming counterpart of [TimeoutUnary].
func TimeoutStream(res *policy.Resolver, fallback time.Duration) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, cancel := scope(ss.Context(), res, fallback, info.FullMethod)
		defer cancel()
		return handler(srv, withStreamContext(ss, ctx))
	}
}
