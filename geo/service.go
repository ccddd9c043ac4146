package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldline/routecache/cache"
	"github.com/fieldline/routecache/contextx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Cache names, as used by Purge, Stats, metrics and remote key prefixes.
const (
	GeocodeCache   = "geocode"
	DriveTimeCache = "drivetime"
	AllCaches      = "all"
)

// ErrUnknownCache is returned by Purge for names other than the constants
// above.
var ErrUnknownCache = errors.New("geo: unknown cache")

// Geocoder resolves a free-text address.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// Router estimates the driving time between two points, in minutes.
type Router interface {
	DriveMinutes(ctx context.Context, from, to Point) (float64, error)
}

// Options configures a [Service]. Geocoder is required; the rest falls back
// to the defaults noted per field.
type Options struct {
	Geocoder Geocoder
	// Router defaults to StraightLine{}.
	Router Router

	// GeocodeTTL defaults to 24h, GeocodeCapacity to 10000.
	GeocodeTTL      time.Duration
	GeocodeCapacity int
	// DriveTimeTTL defaults to 6h, DriveTimeCapacity to 20000. A negative
	// capacity leaves a cache unbounded.
	DriveTimeTTL      time.Duration
	DriveTimeCapacity int

	// SweepInterval enables the background purge of expired entries.
	SweepInterval time.Duration

	// Remote is the shared tier. Optional.
	Remote cache.Remote
	// GeocodeFailures and DriveTimeFailures suppress repeated failing
	// lookups. Optional.
	GeocodeFailures   *cache.Failures
	DriveTimeFailures *cache.Failures
	// Metrics exports per-cache counters. Optional.
	Metrics *cache.Metrics

	Tracer trace.Tracer
	Logger *zap.Logger
	// Now replaces time.Now in both caches, for tests.
	Now func() time.Time
}

// CacheStats describes one cache for the admin API.
type CacheStats struct {
	Name       string  `json:"name"`
	Entries    int     `json:"entries"`
	Capacity   int     `json:"capacity"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// Service answers geocoding and drive-time lookups through two independent
// read-through caches.
type Service struct {
	geocoder Geocoder
	router   Router

	geocode   *cache.Tiered[string, Point]
	driveTime *cache.Tiered[RouteQuery, float64]

	sweep  time.Duration
	tracer trace.Tracer
	log    *zap.Logger
}

// NewService builds a Service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.Geocoder == nil {
		return nil, errors.New("geo: Options.Geocoder is required")
	}
	if opts.Router == nil {
		opts.Router = StraightLine{}
	}
	if opts.GeocodeTTL <= 0 {
		opts.GeocodeTTL = 24 * time.Hour
	}
	if opts.GeocodeCapacity == 0 {
		opts.GeocodeCapacity = 10_000
	}
	if opts.DriveTimeTTL <= 0 {
		opts.DriveTimeTTL = 6 * time.Hour
	}
	if opts.DriveTimeCapacity == 0 {
		opts.DriveTimeCapacity = 20_000
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/fieldline/routecache/geo")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	geocodeCfg := cache.Config[string]{
		TTL:       opts.GeocodeTTL,
		Capacity:  opts.GeocodeCapacity,
		Normalize: AddressKey,
		Now:       opts.Now,
	}
	driveCfg := cache.Config[RouteQuery]{
		TTL:       opts.DriveTimeTTL,
		Capacity:  opts.DriveTimeCapacity,
		Normalize: RouteKey,
		Now:       opts.Now,
	}
	if opts.Metrics != nil {
		geocodeCfg.Observer = opts.Metrics.Observer(GeocodeCache)
		driveCfg.Observer = opts.Metrics.Observer(DriveTimeCache)
	}

	s := &Service{
		geocoder: opts.Geocoder,
		router:   opts.Router,
		geocode: cache.NewTiered(cache.New[string, Point](geocodeCfg), cache.TieredConfig{
			Name:     GeocodeCache,
			Remote:   opts.Remote,
			Failures: opts.GeocodeFailures,
			Logger:   log,
		}),
		driveTime: cache.NewTiered(cache.New[RouteQuery, float64](driveCfg), cache.TieredConfig{
			Name:     DriveTimeCache,
			Remote:   opts.Remote,
			Failures: opts.DriveTimeFailures,
			Logger:   log,
		}),
		sweep:  opts.SweepInterval,
		tracer: opts.Tracer,
		log:    log.Named("geo"),
	}

	if opts.Metrics != nil {
		if err := opts.Metrics.TrackSize(GeocodeCache, s.geocode.Local().Len); err != nil {
			return nil, fmt.Errorf("geo: register metrics: %w", err)
		}
		if err := opts.Metrics.TrackSize(DriveTimeCache, s.driveTime.Local().Len); err != nil {
			return nil, fmt.Errorf("geo: register metrics: %w", err)
		}
	}
	return s, nil
}

// Start launches the expiry sweepers when a SweepInterval is configured. The
// returned function stops them.
func (s *Service) Start(ctx context.Context) (stop func()) {
	if s.sweep <= 0 {
		return func() {}
	}
	stopGeo := s.geocode.Local().StartSweeper(ctx, s.sweep)
	stopDrive := s.driveTime.Local().StartSweeper(ctx, s.sweep)
	return func() {
		stopGeo()
		stopDrive()
	}
}

// Geocode resolves address to coordinates. Addresses that differ only in
// case or surrounding whitespace share one cached answer.
func (s *Service) Geocode(ctx context.Context, address string) (Point, error) {
	ctx, span := s.tracer.Start(ctx, "geo.Geocode")
	defer span.End()

	if strings.TrimSpace(address) == "" {
		return Point{}, s.fail(span, ErrEmptyAddress)
	}

	p, src, err := s.geocode.GetOrLoad(ctx, address, func(ctx context.Context) (Point, error) {
		p, err := s.geocoder.Geocode(ctx, address)
		if err != nil {
			return Point{}, err
		}
		if !p.Valid() {
			return Point{}, fmt.Errorf("%w: provider returned %s", ErrInvalidPoint, p)
		}
		return p, nil
	})
	s.annotate(ctx, span, GeocodeCache, src)
	if err != nil {
		s.log.Debug("geocode failed", zap.String("key", AddressKey(address)), zap.Error(err))
		return Point{}, s.fail(span, err)
	}
	return p, nil
}

// DriveMinutes estimates the driving time of q. Queries whose endpoints
// round to the same coordinates share one cached answer.
func (s *Service) DriveMinutes(ctx context.Context, q RouteQuery) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "geo.DriveMinutes")
	defer span.End()

	if q.From == nil || q.To == nil {
		return 0, s.fail(span, ErrIncompleteRoute)
	}
	if !q.From.Valid() || !q.To.Valid() {
		return 0, s.fail(span, ErrInvalidPoint)
	}
	span.SetAttributes(attribute.String("geo.route", RouteKey(q)))

	from, to := *q.From, *q.To
	minutes, src, err := s.driveTime.GetOrLoad(ctx, q, func(ctx context.Context) (float64, error) {
		m, err := s.router.DriveMinutes(ctx, from, to)
		if err != nil {
			return 0, err
		}
		if m < 0 {
			return 0, fmt.Errorf("geo: negative drive time %v", m)
		}
		return m, nil
	})
	s.annotate(ctx, span, DriveTimeCache, src)
	if err != nil {
		s.log.Debug("drive time failed", zap.String("key", RouteKey(q)), zap.Error(err))
		return 0, s.fail(span, err)
	}
	return minutes, nil
}

// Stats reports the size of both caches.
func (s *Service) Stats() []CacheStats {
	return []CacheStats{
		statsOf(GeocodeCache, s.geocode.Local()),
		statsOf(DriveTimeCache, s.driveTime.Local()),
	}
}

// Purge empties the named cache ("geocode", "drivetime" or "all") and its
// failure memo, returning the names purged.
func (s *Service) Purge(ctx context.Context, name string) ([]string, error) {
	var purged []string
	switch name {
	case GeocodeCache:
		s.geocode.Purge()
		purged = []string{GeocodeCache}
	case DriveTimeCache:
		s.driveTime.Purge()
		purged = []string{DriveTimeCache}
	case AllCaches:
		s.geocode.Purge()
		s.driveTime.Purge()
		purged = []string{GeocodeCache, DriveTimeCache}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCache, name)
	}
	s.log.Info("cache purged",
		zap.Strings("caches", purged),
		zap.String("tenant", contextx.TenantFromContext(ctx)),
	)
	return purged, nil
}

func (s *Service) annotate(ctx context.Context, span trace.Span, name string, src cache.Source) {
	span.SetAttributes(
		attribute.String("cache.name", name),
		attribute.String("cache.source", src.String()),
		attribute.Bool("cache.hit", src.Hit()),
	)
	if tenant := contextx.TenantFromContext(ctx); tenant != "" {
		span.SetAttributes(attribute.String("tenant", tenant))
	}
	contextx.TagsFromContext(ctx).Set("cache", src.String())
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func statsOf[K, V any](name string, c *cache.Expiring[K, V]) CacheStats {
	return CacheStats{
		Name:       name,
		Entries:    c.Len(),
		Capacity:   c.Capacity(),
		TTLSeconds: c.TTL().Seconds(),
	}
}
