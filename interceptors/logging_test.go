package interceptors

import (
	"context"
	"testing"

	"github.com/fieldline/routecache/contextx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoggingUnary_AccessEntry(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ic := LoggingUnary(zap.New(core))

	ctx, _ := contextx.WithTags(contextx.WithRequestID(t.Context(), "req-7"))
	_, err := ic(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/routecache.Lookup/Geocode"}, func(ctx context.Context, _ any) (any, error) {
		contextx.TagsFromContext(ctx).Set("tenant", "acme")
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.InfoLevel {
		t.Fatalf("level: got %v, want info", e.Level)
	}
	fields := e.ContextMap()
	if fields["method"] != "/routecache.Lookup/Geocode" || fields["code"] != "OK" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if fields["request_id"] != "req-7" || fields["tenant"] != "acme" {
		t.Fatalf("missing request id or tags: %v", fields)
	}
}

func TestLoggingUnary_ServerErrorsWarn(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ic := LoggingUnary(zap.New(core))

	_, _ = ic(t.Context(), nil, &grpc.UnaryServerInfo{FullMethod: "/routecache.Lookup/DriveTime"}, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.Unavailable, "provider down")
	})

	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one warn entry, got %v", entries)
	}
}

func TestLoggingUnary_ClientErrorsInfo(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ic := LoggingUnary(zap.New(core))

	_, _ = ic(t.Context(), nil, &grpc.UnaryServerInfo{FullMethod: "/routecache.Lookup/Geocode"}, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "empty address")
	})

	if entries := logs.All(); len(entries) != 1 || entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected one info entry, got %v", entries)
	}
}
