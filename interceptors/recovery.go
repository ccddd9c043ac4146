package interceptors

import (
	"context"
	"runtime/debug"

	"github.com/fieldline/routecache/contextx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errInternal = status.Error(codes.Internal, "internal server error")

// RecoveryUnary turns a handler panic into codes.Internal and logs the panic
// value with its stack. log may be nil.
func RecoveryUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	log = orNop(log)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in handler",
					zap.String("method", info.FullMethod),
					zap.String("request_id", contextx.RequestIDFromContext(ctx)),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				resp, err = nil, errInternal
			}
		}()
		return handler(ctx, req)
	}
}

// RecoveryStream is the streaming counterpart of [RecoveryUnary].
func RecoveryStream(log *zap.Logger) grpc.StreamServerInterceptor {
	log = orNop(log)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in stream handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = errInternal
			}
		}()
		return handler(srv, ss)
	}
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
