// Package routecache serves memoized geocoding and drive-time lookups over
// gRPC. [NewServer] wraps a grpc.Server with ordered middleware:
//
//	recovery (100) -> request ID (200) -> tracing (250) -> access log (300)
//	-> auth (400) -> rate limit (500) -> timeout (600) -> custom (700)
//
// The lookup services live in package lookup, the caches in package cache
// and the lookup logic in package geo.
package routecache

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/fieldline/routecache/lookup"
	"github.com/fieldline/routecache/ping"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server is a gRPC server with routecache's middleware stack.
//
//	srv := routecache.NewServer(append(routecache.DefaultOptions(),
//		routecache.WithLogger(log),
//		routecache.WithAuth(keys.AuthFunc()),
//		routecache.WithPolicies(res),
//	)...)
//	srv.RegisterLookup(svc)
type Server struct {
	grpcServer *grpc.Server
	metrics    http.Handler
	log        *zap.Logger
}

// NewServer applies opts and builds the interceptor chains. Middleware order
// is fixed by priority, not by the order options are passed.
func NewServer(opts ...Option) *Server {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	cfg.assemble()

	s := &Server{
		grpcServer: grpc.NewServer(cfg.middlewares.ServerOptions()...),
		metrics:    promhttp.Handler(),
		log:        cfg.logger,
	}
	if cfg.registry != nil {
		s.metrics = promhttp.HandlerFor(cfg.registry, promhttp.HandlerOpts{Registry: cfg.registry})
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log.Debug("grpc middleware", zap.Strings("layers", cfg.middlewares.Names()))
	return s
}

// GRPC returns the underlying *grpc.Server so callers can register services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpcServer
}

// RegisterLookup registers routecache.Lookup and routecache.Admin backed by b.
func (s *Server) RegisterLookup(b lookup.Backend) {
	lookup.Register(s.grpcServer, b)
}

// RegisterPing registers the routecache.Ping health check.
func (s *Server) RegisterPing(h ping.Handler) {
	ping.Register(s.grpcServer, h)
}

// MetricsHandler serves the Prometheus metrics.
func (s *Server) MetricsHandler() http.Handler {
	return s.metrics
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.log.Info("stopping grpc server")
			s.grpcServer.GracefulStop()
		case <-done:
		}
	}()

	s.log.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	err := s.grpcServer.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}
