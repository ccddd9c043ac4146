package routecache

import (
	"time"

	"github.com/fieldline/routecache/auth"
	"github.com/fieldline/routecache/policy"
	"github.com/fieldline/routecache/ratelimit"
	"github.com/fieldline/routecache/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Option configures a Server.
type Option func(*config)

// WithUnaryInterceptor appends a unary server interceptor. Custom
// interceptors run inside the built-in ones, in the order given.
func WithUnaryInterceptor(i grpc.UnaryServerInterceptor) Option {
	return func(c *config) {
		c.middlewares.Add(orderCustom, "custom", i, nil)
	}
}

// WithStreamInterceptor appends a stream server interceptor. Custom
// interceptors run inside the built-in ones, in the order given.
func WithStreamInterceptor(i grpc.StreamServerInterceptor) Option {
	return func(c *config) {
		c.middlewares.Add(orderCustom, "custom", nil, i)
	}
}

// WithRecovery turns handler panics into codes.Internal instead of crashing
// the process. Panics are logged with their stack when a logger is set.
func WithRecovery() Option {
	return func(c *config) {
		c.recovery = true
	}
}

// WithLogger sets the server logger and enables one access log entry per
// call.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		c.logger = log
	}
}

// WithRequestID accepts or generates an x-request-id for every call and
// echoes it in the response header.
func WithRequestID() Option {
	return func(c *config) {
		c.requestID = true
	}
}

// WithOpenTelemetry starts a server span per call. A nil cfg uses the global
// tracer provider and propagators.
func WithOpenTelemetry(cfg *tracing.Config) Option {
	return func(c *config) {
		if cfg == nil {
			cfg = &tracing.Config{}
		}
		c.tracing = cfg
	}
}

// WithAuth authenticates calls with fn. Whether a method requires
// credentials is decided by the policies (see [WithPolicies]).
func WithAuth(fn auth.AuthFunc) Option {
	return func(c *config) {
		c.authFn = fn
	}
}

// WithPolicies applies per-group rate limits, timeouts and auth requirements.
func WithPolicies(res *policy.Resolver) Option {
	return func(c *config) {
		c.resolver = res
	}
}

// WithRateLimitGlobal limits calls outside any rate-limited policy group to
// rps per second with the given burst.
func WithRateLimitGlobal(rps float64, burst int) Option {
	return func(c *config) {
		c.global = ratelimit.NewLimiter(rps, burst)
	}
}

// WithTimeout bounds calls whose policy sets no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithMetricsRegistry serves reg from [Server.MetricsHandler] instead of the
// default Prometheus registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(c *config) {
		c.registry = reg
	}
}
