package interceptors

import (
	"context"
	"sort"
	"time"

	"github.com/fieldline/routecache/contextx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnary writes one access log entry per call with the method, status
// code, latency, request ID and the tags set by inner middleware. Server
// faults log at warn, everything else at info.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	log = orNop(log).Named("access")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(ctx, log, info.FullMethod, start, err)
		return resp, err
	}
}

// LoggingStream is the streaming counterpart of [LoggingUnary].
func LoggingStream(log *zap.Logger) grpc.StreamServerInterceptor {
	log = orNop(log).Named("access")
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(ss.Context(), log, info.FullMethod, start, err)
		return err
	}
}

func logCall(ctx context.Context, log *zap.Logger, method string, start time.Time, err error) {
	code := status.Code(err)
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("code", code.String()),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", contextx.RequestIDFromContext(ctx)),
	}

	tags := contextx.TagsFromContext(ctx).Values()
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.String(k, tags[k]))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	log.Check(levelFor(code), "grpc call").Write(fields...)
}

func levelFor(code codes.Code) zapcore.Level {
	switch code {
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable, codes.DeadlineExceeded:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
