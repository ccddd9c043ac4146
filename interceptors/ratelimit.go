package interceptors

import (
	"context"
	"sync"

	"github.com/fieldline/routecache/policy"
	"github.com/fieldline/routecache/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errRateLimited = status.Error(codes.ResourceExhausted, "rate limit exceeded")

// Limiters picks the limiter for a call: the group limiter when the resolved
// policy has a RateLimit rule, the global one otherwise. Group limiters are
// created on first use. The HTTP API shares the same type.
type Limiters struct {
	global   *ratelimit.Limiter
	resolver *policy.Resolver

	mu     sync.Mutex
	groups map[string]*ratelimit.Limiter
}

// NewLimiters creates a Limiters. Either argument may be nil.
func NewLimiters(global *ratelimit.Limiter, res *policy.Resolver) *Limiters {
	return &Limiters{global: global, resolver: res, groups: make(map[string]*ratelimit.Limiter)}
}

// Allow reports whether a call to name may proceed.
func (l *Limiters) Allow(name string) bool {
	lim := l.For(name)
	return lim == nil || lim.Allow()
}

// For returns the limiter applying to name, or nil if none does.
func (l *Limiters) For(name string) *ratelimit.Limiter {
	m, ok := l.resolver.Resolve(name)
	if !ok || m.Policy.RateLimit == nil {
		return l.global
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.groups[m.Group]
	if !ok {
		rl := m.Policy.RateLimit
		lim = ratelimit.NewLimiter(rl.PerSecond(), rl.Rate)
		l.groups[m.Group] = lim
	}
	return lim
}

// RateLimitUnary rejects calls with codes.ResourceExhausted once their
// limiter is exhausted.
func RateLimitUnary(l *Limiters) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !l.Allow(info.FullMethod) {
			return nil, errRateLimited
		}
		return handler(ctx, req)
	}
}

// RateLimitStream is the streaming counterpart of [RateLimitUnary].
func RateLimitStream(l *Limiters) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !l.Allow(info.FullMethod) {
			return errRateLimited
		}
		return handler(srv, ss)
	}
}
