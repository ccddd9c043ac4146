package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/fieldline/routecache/auth"
	"github.com/fieldline/routecache/contextx"
	"github.com/fieldline/routecache/interceptors"
	"github.com/fieldline/routecache/policy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Header names.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderAPIKey    = "X-API-Key"
	HeaderTenant    = "X-Tenant-ID"
)

// routeName is the name policies are resolved against, e.g.
// "GET /v1/cache/:name".
func routeName(c *gin.Context) string {
	return c.Request.Method + " " + c.FullPath()
}

// requestID echoes the caller's X-Request-ID or generates one, and attaches
// the request ID and a tag set to the request context.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)

		ctx := contextx.WithRequestID(c.Request.Context(), id)
		ctx, _ = contextx.WithTags(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", contextx.RequestIDFromContext(ctx)),
		}
		tags := contextx.TagsFromContext(ctx).Values()
		keys := make([]string, 0, len(tags))
		for k := range tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, zap.String(k, tags[k]))
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.String("error", errs.String()))
		}

		level := zapcore.InfoLevel
		if status >= http.StatusInternalServerError {
			level = zapcore.WarnLevel
		}
		log.Check(level, "http request").Write(fields...)
	}
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		log.Error("panic recovered",
			zap.Any("panic", rec),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", contextx.RequestIDFromContext(c.Request.Context())),
			zap.Stack("stack"),
		)
		errorStrResp(c, http.StatusInternalServerError, "internal error")
	})
}

// authenticate applies the same rules as the gRPC auth interceptor: routes
// whose policy sets AuthRequired or Scope need a valid key, other routes
// accept anonymous callers but reject invalid keys. Anonymous callers may
// name their tenant with X-Tenant-ID for logging.
func authenticate(keys *auth.KeyStore, res *policy.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		m, _ := res.Resolve(routeName(c))
		required := m.Policy.AuthRequired || m.Policy.Scope != ""

		var (
			actor contextx.Actor
			err   = auth.ErrMissingKey
		)
		if keys != nil {
			actor, err = keys.Authenticate(c.GetHeader(HeaderAPIKey))
		}
		switch {
		case err == nil:
			if m.Policy.Scope != "" && !actor.HasScope(m.Policy.Scope) {
				errorStrResp(c, http.StatusForbidden, "missing required scope")
				return
			}
			ctx = contextx.WithActor(ctx, actor)
			contextx.TagsFromContext(ctx).Set("tenant", actor.Tenant)
		case !required && errors.Is(err, auth.ErrMissingKey):
			if tenant := c.GetHeader(HeaderTenant); tenant != "" {
				contextx.TagsFromContext(ctx).Set("tenant", tenant)
			}
		default:
			errorStrResp(c, http.StatusUnauthorized, "unauthenticated")
			return
		}

		if m.Group != "" {
			ctx = contextx.WithGroup(ctx, m.Group)
			contextx.TagsFromContext(ctx).Set("group", m.Group)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func rateLimit(l *interceptors.Limiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(routeName(c)) {
			errorStrResp(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// timeout bounds the request context with the route policy's Timeout.
func timeout(res *policy.Resolver, fallback time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := fallback
		if m, ok := res.Resolve(routeName(c)); ok && m.Policy.Timeout > 0 {
			d = m.Policy.Timeout
		}
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
