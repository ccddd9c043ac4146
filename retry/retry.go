package retry

import (
	"context"
	"errors"
	"slices"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config controls the retry behaviour of [Do].
type Config struct {
	// MaxAttempts is the maximum number of times fn is called, including the
	// first attempt. Values <= 1 mean no retries.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Later retries double it.
	BaseDelay time.Duration

	// MaxDelay caps the computed back-off delay.
	MaxDelay time.Duration

	// Jitter adds randomness to the delay. 0.2 means +/-20% of the computed
	// delay. Zero disables jitter.
	Jitter float64

	// RetryIf decides whether an error is worth another attempt. Nil means
	// no error is retried.
	RetryIf func(error) bool
}

// OnCodes returns a RetryIf predicate that accepts errors carrying one of the
// given gRPC status codes.
func OnCodes(retryable ...codes.Code) func(error) bool {
	return func(err error) bool {
		st, ok := status.FromError(err)
		return ok && slices.Contains(retryable, st.Code())
	}
}

// Temporary is a RetryIf predicate for upstream errors that report
// Temporary() == true, such as rate-limit and server-side HTTP failures.
// Context errors are never temporary.
func Temporary(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// Do calls fn up to cfg.MaxAttempts times, retrying while cfg.RetryIf accepts
// the returned error. Attempts are separated by an exponential back-off.
//
// If ctx is done while waiting, Do returns the context error.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxAttempts, 1)

	var err error
	for i := range attempts {
		var result T
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if i == attempts-1 || cfg.RetryIf == nil || !cfg.RetryIf(err) {
			break
		}

		timer := time.NewTimer(backoff(cfg, i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, err
}
