// Package ratelimit provides token-bucket limiters backed by
// golang.org/x/time/rate. Inbound gates use [Limiter.Allow] to reject excess
// requests; outbound provider clients use [Limiter.Wait] to stay under an
// upstream's usage policy.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter creates a Limiter that permits rps events per second with the
// given burst size. A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &Limiter{lim: rate.NewLimiter(limit, max(burst, 1))}
}

// Allow reports whether a single event may happen now.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}

// Wait blocks until an event may happen or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.lim.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit: %w", err)
	}
	return nil
}
