// Package httpapi serves the lookup and admin operations as a JSON HTTP API
// built on gin. It shares authentication, policies and rate limiting with
// the gRPC server, so both surfaces enforce the same rules.
//
//	GET    /healthz
//	GET    /v1/geocode?address=
//	GET    /v1/drivetime?from=lat,lng&to=lat,lng
//	GET    /v1/cache/stats
//	DELETE /v1/cache/:name
//	GET    /metrics
package httpapi

import (
	"net/http"
	"time"

	"github.com/fieldline/routecache/auth"
	"github.com/fieldline/routecache/geo"
	"github.com/fieldline/routecache/interceptors"
	"github.com/fieldline/routecache/lookup"
	"github.com/fieldline/routecache/ping"
	"github.com/fieldline/routecache/policy"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configures the router. Backend is required.
type Options struct {
	Backend lookup.Backend

	// Keys authenticates X-API-Key. Nil accepts only anonymous callers, so
	// routes that require auth always answer 401.
	Keys *auth.KeyStore
	// Policies is resolved against "METHOD /route", e.g. "DELETE /v1/cache/:name".
	Policies *policy.Resolver
	// Limiters gates requests per route group. Optional.
	Limiters *interceptors.Limiters
	// Timeout applies to routes whose policy sets none. Zero disables it.
	Timeout time.Duration

	// Health answers /healthz. Nil always reports healthy.
	Health ping.Handler
	// Metrics serves /metrics. Nil leaves the route out.
	Metrics http.Handler

	Logger *zap.Logger
}

// New builds the HTTP handler.
func New(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	r := gin.New()
	r.Use(requestID(), accessLog(log), recovery(log))

	r.GET("/healthz", healthz(opts.Health))
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	h := &handlers{b: opts.Backend}
	v1 := r.Group("/v1", authenticate(opts.Keys, opts.Policies))
	if opts.Limiters != nil {
		v1.Use(rateLimit(opts.Limiters))
	}
	v1.Use(timeout(opts.Policies, opts.Timeout))
	{
		v1.GET("/geocode", h.geocode)
		v1.GET("/drivetime", h.driveTime)
		v1.GET("/cache/stats", h.stats)
		v1.DELETE("/cache/:name", h.purge)
	}
	return r
}

func healthz(h ping.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h == nil {
			successResp(c, gin.H{"healthy": true})
			return
		}
		resp, err := h.Ping(c.Request.Context(), &ping.PingRequest{Message: "healthz"})
		if err != nil {
			errorResp(c, err)
			return
		}
		if !resp.Healthy {
			c.JSON(http.StatusServiceUnavailable, Resp[*ping.PingResponse]{
				Code:    http.StatusServiceUnavailable,
				Message: "unhealthy",
				Data:    resp,
			})
			return
		}
		successResp(c, resp)
	}
}

type handlers struct {
	b lookup.Backend
}

func (h *handlers) geocode(c *gin.Context) {
	p, err := h.b.Geocode(c.Request.Context(), c.Query("address"))
	if err != nil {
		errorResp(c, err)
		return
	}
	successResp(c, p)
}

func (h *handlers) driveTime(c *gin.Context) {
	var q geo.RouteQuery
	for _, end := range []struct {
		param string
		dst   **geo.Point
	}{{"from", &q.From}, {"to", &q.To}} {
		raw := c.Query(end.param)
		if raw == "" {
			continue
		}
		p, err := geo.ParsePoint(raw)
		if err != nil {
			errorResp(c, err)
			return
		}
		*end.dst = &p
	}

	m, err := h.b.DriveMinutes(c.Request.Context(), q)
	if err != nil {
		errorResp(c, err)
		return
	}
	successResp(c, lookup.DriveTimeResponse{Minutes: m})
}

func (h *handlers) stats(c *gin.Context) {
	successResp(c, h.b.Stats())
}

func (h *handlers) purge(c *gin.Context) {
	purged, err := h.b.Purge(c.Request.Context(), c.Param("name"))
	if err != nil {
		errorResp(c, err)
		return
	}
	successResp(c, lookup.PurgeResponse{Purged: purged})
}
