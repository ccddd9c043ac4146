// Package retry wraps calls to flaky upstreams (geocoding and routing
// providers, or gRPC peers) with exponential back-off and jitter.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// backoff returns the delay before retry number attempt (0-indexed), capped
// at cfg.MaxDelay when set.
func backoff(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if limit := float64(cfg.MaxDelay); limit > 0 && delay > limit {
		delay = limit
	}
	if cfg.Jitter > 0 {
		delay += delay * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(delay, 0))
}
