package routecache

import (
	"time"

	"github.com/fieldline/routecache/auth"
	"github.com/fieldline/routecache/interceptors"
	"github.com/fieldline/routecache/internal/core"
	"github.com/fieldline/routecache/policy"
	"github.com/fieldline/routecache/ratelimit"
	"github.com/fieldline/routecache/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Middleware priorities. Lower values run first (outermost).
const (
	orderRecovery  = 100
	orderRequestID = 200
	orderTracing   = 250
	orderLogging   = 300
	orderAuth      = 400
	orderRateLimit = 500
	orderTimeout   = 600
	orderCustom    = 700
)

// config holds the settings collected from options. Interceptors are built
// from it in [config.assemble], once all options are known.
type config struct {
	middlewares core.Stack

	logger    *zap.Logger
	recovery  bool
	requestID bool
	tracing   *tracing.Config
	authFn    auth.AuthFunc
	resolver  *policy.Resolver
	global    *ratelimit.Limiter
	timeout   time.Duration
	registry  *prometheus.Registry
}

func (c *config) assemble() {
	log := c.logger
	if log == nil {
		log = zap.NewNop()
	}

	if c.recovery {
		c.middlewares.Add(orderRecovery, "recovery", interceptors.RecoveryUnary(log), interceptors.RecoveryStream(log))
	}
	// Tracing and logging read the request ID and tags, so they imply it.
	if c.requestID || c.tracing != nil || c.logger != nil {
		c.middlewares.Add(orderRequestID, "request-id", interceptors.RequestIDUnary(), interceptors.RequestIDStream())
	}
	if c.tracing != nil {
		c.middlewares.Add(orderTracing, "tracing", tracing.UnaryServerInterceptor(c.tracing), tracing.StreamServerInterceptor(c.tracing))
	}
	if c.logger != nil {
		c.middlewares.Add(orderLogging, "logging", interceptors.LoggingUnary(log), interceptors.LoggingStream(log))
	}
	if c.authFn != nil {
		c.middlewares.Add(orderAuth, "auth", interceptors.AuthUnary(c.authFn, c.resolver), interceptors.AuthStream(c.authFn, c.resolver))
	}
	if c.global != nil || c.resolver != nil {
		l := interceptors.NewLimiters(c.global, c.resolver)
		c.middlewares.Add(orderRateLimit, "ratelimit", interceptors.RateLimitUnary(l), interceptors.RateLimitStream(l))
	}
	if c.resolver != nil || c.timeout > 0 {
		c.middlewares.Add(orderTimeout, "timeout", interceptors.TimeoutUnary(c.resolver, c.timeout), interceptors.TimeoutStream(c.resolver, c.timeout))
	}
}
