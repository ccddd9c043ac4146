package cli

import (
	"context"
	"time"

	"github.com/fieldline/routecache/auth"
	"github.com/fieldline/routecache/cache"
	"github.com/fieldline/routecache/config"
	"github.com/fieldline/routecache/contextx"
	"github.com/fieldline/routecache/geo"
	"github.com/fieldline/routecache/lookup"
	"github.com/fieldline/routecache/ping"
	"github.com/fieldline/routecache/policy"
	"github.com/fieldline/routecache/provider"
	"github.com/fieldline/routecache/retry"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// app holds the components shared by the serve and lookup commands.
type app struct {
	service *geo.Service
	redis   *cache.Redis
	checks  map[string]ping.Check
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires providers, caches and metrics from cfg. reg and tracer may be
// nil.
func newApp(cfg config.Config, log *zap.Logger, reg prometheus.Registerer, tracer trace.Tracer) (*app, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &app{checks: map[string]ping.Check{}}

	opts := geo.Options{
		Geocoder:          provider.NewNominatim(providerConfig(cfg.Nominatim, log)),
		GeocodeTTL:        cfg.Geocode.TTL.Std(),
		GeocodeCapacity:   cfg.Geocode.Capacity,
		DriveTimeTTL:      cfg.DriveTime.TTL.Std(),
		DriveTimeCapacity: cfg.DriveTime.Capacity,
		SweepInterval:     cfg.Server.SweepInterval.Std(),
		Tracer:            tracer,
		Logger:            log,
	}
	if cfg.OSRM.URL != "" {
		opts.Router = provider.NewOSRM(providerConfig(cfg.OSRM, log))
	} else {
		log.Info("no routing provider configured, using straight-line drive times")
	}

	if cfg.Redis.Address != "" {
		a.redis = cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			Logger:   log,
		})
		a.closers = append(a.closers, func() { _ = a.redis.Close() })
		a.checks["redis"] = a.redis.Ping
		opts.Remote = a.redis
	}

	var err error
	if opts.GeocodeFailures, err = newFailures(cfg.Geocode, log.With(zap.String("cache", geo.GeocodeCache))); err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, opts.GeocodeFailures.Close)
	if opts.DriveTimeFailures, err = newFailures(cfg.DriveTime, log.With(zap.String("cache", geo.DriveTimeCache))); err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, opts.DriveTimeFailures.Close)

	if reg != nil {
		if opts.Metrics, err = cache.NewMetrics(reg); err != nil {
			a.Close()
			return nil, errors.Wrap(err, "register cache metrics")
		}
	}

	if a.service, err = geo.NewService(opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newFailures(c config.Cache, log *zap.Logger) (*cache.Failures, error) {
	if c.FailureTTL <= 0 {
		return nil, nil
	}
	f, err := cache.NewFailures(c.FailureEntries, c.FailureTTL.Std(), log)
	return f, errors.Wrap(err, "create failure memo")
}

func providerConfig(p config.Provider, log *zap.Logger) provider.Config {
	return provider.Config{
		BaseURL:   p.URL,
		Timeout:   p.Timeout.Std(),
		UserAgent: p.UserAgent,
		Rate:      p.Rate,
		Burst:     p.Burst,
		Retry:     retry.Config{MaxAttempts: p.Attempts, Jitter: 0.2},
		Logger:    log,
	}
}

func keyStore(cfg config.Config) *auth.KeyStore {
	keys := make(map[string]contextx.Actor, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		keys[k.Key] = contextx.Actor{Tenant: k.Tenant, KeyID: keyID(k.Key), Scopes: k.Scopes}
	}
	return auth.APIKeys(keys)
}

// keyID is a loggable stand-in for an API key.
func keyID(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// policies puts the admin operations of both surfaces behind cfg.AdminScope
// and bounds lookups by the server timeout.
func policies(cfg config.Config) *policy.Resolver {
	admin := policy.Policy{AuthRequired: cfg.AdminScope != "", Scope: cfg.AdminScope}
	lookups := policy.Policy{Timeout: cfg.Server.Timeout.Std()}

	return policy.NewResolver(
		policy.Group("admin").
			Prefix("/"+lookup.AdminService+"/").
			Exact("GET /v1/cache/stats").
			Prefix("DELETE /v1/cache/").
			Policy(admin),
		policy.Group("lookup").
			Prefix("/"+lookup.LookupService+"/").
			Exact("GET /v1/geocode").
			Exact("GET /v1/drivetime").
			Policy(lookups),
	)
}

// withTimeout bounds a one-shot CLI lookup.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
