package interceptors

import (
	"context"

	"github.com/fieldline/routecache/contextx"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// RequestIDKey is the metadata key used to accept and return request IDs.
const RequestIDKey = "x-request-id"

// prepare stores a request ID (the caller's, or a new UUID) and a fresh
// [contextx.Tags] in ctx, and reports the ID in the response header.
func prepare(ctx context.Context) context.Context {
	id := contextx.RequestIDFromContext(ctx)
	if id == "" {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDKey); len(vals) > 0 && vals[0] != "" {
				id = vals[0]
			}
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	ctx = contextx.WithRequestID(ctx, id)
	ctx, _ = contextx.WithTags(ctx)

	// Fails outside a real server transport (unit tests); nothing to do then.
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, id))
	return ctx
}

// RequestIDUnary ensures every call carries a request ID and a tag set.
func RequestIDUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(prepare(ctx), req)
	}
}

// RequestIDStream is the streaming counterpart of [RequestIDUnary].
func RequestIDStream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return handler(srv, withStreamContext(ss, prepare(ss.Context())))
	}
}
