package routecache

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/fieldline/routecache/auth"
	"github.com/fieldline/routecache/contextx"
	"github.com/fieldline/routecache/interceptors"
	"github.com/fieldline/routecache/policy"
	"github.com/fieldline/routecache/tracing"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func layersFor(opts ...Option) []string {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	cfg.assemble()
	return cfg.middlewares.Names()
}

func TestAssembleLayers(t *testing.T) {
	passthrough := func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		return next(ctx, req)
	}
	keys := auth.APIKeys(nil)

	tests := []struct {
		name string
		opts []Option
		want []string
	}{
		{"none", nil, []string{}},
		{"defaults", DefaultOptions(), []string{"recovery", "request-id"}},
		{"logger implies request id", []Option{WithLogger(zap.NewNop())}, []string{"request-id", "logging"}},
		{"tracing implies request id", []Option{WithOpenTelemetry(nil)}, []string{"request-id", "tracing"}},
		{"policies add limits and deadlines", []Option{WithPolicies(policy.NewResolver())}, []string{"ratelimit", "timeout"}},
		{"global limit only", []Option{WithRateLimitGlobal(10, 10)}, []string{"ratelimit"}},
		{
			"options passed out of order",
			[]Option{WithUnaryInterceptor(passthrough), WithTimeout(time.Second), WithAuth(keys.AuthFunc()), WithRecovery()},
			[]string{"recovery", "auth", "timeout", "custom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := layersFor(tt.opts...)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("layers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssembleTracingKeepsConfig(t *testing.T) {
	cfg := &tracing.Config{}
	var c config
	WithOpenTelemetry(cfg)(&c)
	if c.tracing != cfg {
		t.Fatal("WithOpenTelemetry did not keep the given config")
	}
}

func TestAssembleOrdersBuiltins(t *testing.T) {
	var trail []string
	tag := func(name string) Option {
		return WithUnaryInterceptor(func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
			trail = append(trail, name)
			return next(ctx, req)
		})
	}

	var cfg config
	for _, o := range []Option{tag("custom-1"), WithRecovery(), WithTimeout(time.Second), WithRequestID(), tag("custom-2")} {
		o(&cfg)
	}
	cfg.assemble()
	unary, _ := cfg.middlewares.Build()
	if len(unary) != 5 {
		t.Fatalf("expected 5 interceptors, got %d", len(unary))
	}

	var sawRequestID, sawDeadline bool
	final := func(ctx context.Context, req any) (any, error) {
		sawRequestID = contextx.RequestIDFromContext(ctx) != ""
		_, sawDeadline = ctx.Deadline()
		return req, nil
	}
	chained := interceptors.ChainUnary(unary)
	if _, err := chained(t.Context(), "req", &grpc.UnaryServerInfo{FullMethod: "/routecache.Lookup/Geocode"}, final); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawRequestID || !sawDeadline {
		t.Fatalf("built-in interceptors did not run before the handler: request id %v, deadline %v", sawRequestID, sawDeadline)
	}
	if !slices.Equal(trail, []string{"custom-1", "custom-2"}) {
		t.Fatalf("custom interceptors ran out of order: %v", trail)
	}
}
