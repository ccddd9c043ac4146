// Package provider implements the upstream lookups behind routecache:
// Nominatim for geocoding and OSRM for drive times. Every call goes through
// an outbound rate limiter, a circuit breaker and a retry loop.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fieldline/routecache/breaker"
	"github.com/fieldline/routecache/ratelimit"
	"github.com/fieldline/routecache/retry"
	"github.com/go-resty/resty/v2"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// Config configures one provider client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// Rate and Burst bound outbound requests. Rate <= 0 disables limiting.
	Rate  float64
	Burst int

	// Retry and Breaker tune resilience. Zero values get sensible defaults;
	// RetryIf and IsFailure are always set by the client.
	Retry   retry.Config
	Breaker breaker.Config

	Logger *zap.Logger
}

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Code, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type client struct {
	name    string
	http    *resty.Client
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	retry   retry.Config
	log     *zap.Logger
}

func newClient(name string, cfg Config) *client {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named(name)

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "routecache/1.0"
	}

	rc := cfg.Retry
	if rc.MaxAttempts == 0 {
		rc.MaxAttempts = 3
	}
	if rc.BaseDelay == 0 {
		rc.BaseDelay = 200 * time.Millisecond
	}
	if rc.MaxDelay == 0 {
		rc.MaxDelay = 2 * time.Second
	}
	rc.RetryIf = retryable

	bc := cfg.Breaker
	if bc.Name == "" {
		bc.Name = name
	}
	if bc.FailureThreshold == 0 {
		bc.FailureThreshold = 5
	}
	if bc.OpenTimeout == 0 {
		bc.OpenTimeout = 30 * time.Second
	}
	if bc.HalfOpenMaxSuccess == 0 {
		bc.HalfOpenMaxSuccess = 1
	}
	bc.IsFailure = func(err error) bool { return retryable(err) }
	if bc.OnStateChange == nil {
		bc.OnStateChange = func(name string, from, to breaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
	}

	return &client{
		name: name,
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", cfg.UserAgent).
			SetHeader("Accept", "application/json"),
		limiter: ratelimit.NewLimiter(cfg.Rate, cfg.Burst),
		breaker: breaker.New(bc),
		retry:   rc,
		log:     log,
	}
}

// get issues GET path and decodes the JSON body into out.
func (c *client) get(ctx context.Context, path string, query map[string]string, out any) error {
	_, err := breaker.Do(c.breaker, func() (struct{}, error) {
		return retry.Do(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.once(ctx, path, query, out)
		})
	})
	return err
}

func (c *client) once(ctx context.Context, path string, query map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return pkgerrors.Wrapf(err, "%s: GET %s", c.name, path)
	}
	c.log.Debug("provider call",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.IsError() {
		return &StatusError{Provider: c.name, Code: resp.StatusCode(), Body: truncate(resp.String(), 256)}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return pkgerrors.Wrapf(err, "%s: decode response", c.name)
	}
	return nil
}

// retryable accepts transport errors and throttling or server-side
// statuses. Context errors, "not found" answers and bad payloads are final.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return retry.Temporary(se)
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
