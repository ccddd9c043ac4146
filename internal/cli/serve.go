package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldline/routecache"
	"github.com/fieldline/routecache/config"
	"github.com/fieldline/routecache/httpapi"
	"github.com/fieldline/routecache/interceptors"
	"github.com/fieldline/routecache/logger"
	"github.com/fieldline/routecache/ping"
	"github.com/fieldline/routecache/ratelimit"
	"github.com/fieldline/routecache/tracing"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(configPath *string) *cobra.Command {
	var traceStdout bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC and HTTP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, closer := logger.New(cfg.LogLevel, cfg.Log)
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, traceStdout)
		},
	}
	cmd.Flags().BoolVar(&traceStdout, "trace-stdout", false, "print finished trace spans to stdout")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger, traceStdout bool) error {
	var tc *tracing.Config
	if traceStdout {
		tp, err := tracing.NewStdoutProvider(os.Stdout, "routecache")
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
		tc = &tracing.Config{TracerProvider: tp}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(cfg, log, reg, tc.Tracer())
	if err != nil {
		return err
	}
	defer a.Close()

	keys := keyStore(cfg)
	res := policies(cfg)
	health := ping.DefaultHandler(2*time.Second, a.checks)

	opts := append(routecache.DefaultOptions(),
		routecache.WithLogger(log),
		routecache.WithAuth(keys.AuthFunc()),
		routecache.WithPolicies(res),
		routecache.WithRateLimitGlobal(cfg.Server.RateLimit, cfg.Server.RateBurst),
		routecache.WithTimeout(cfg.Server.Timeout.Std()),
		routecache.WithMetricsRegistry(reg),
	)
	if tc != nil {
		opts = append(opts, routecache.WithOpenTelemetry(tc))
	}
	srv := routecache.NewServer(opts...)
	srv.RegisterLookup(a.service)
	srv.RegisterPing(health)

	stopSweep := a.service.Start(ctx)
	defer stopSweep()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Server.GRPCAddress != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddress)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Serve(ctx, lis) })
	}

	if cfg.Server.HTTPAddress != "" {
		gin.SetMode(gin.ReleaseMode)
		hs := &http.Server{
			Addr: cfg.Server.HTTPAddress,
			Handler: httpapi.New(httpapi.Options{
				Backend:  a.service,
				Keys:     keys,
				Policies: res,
				Limiters: interceptors.NewLimiters(ratelimit.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst), res),
				Timeout:  cfg.Server.Timeout.Std(),
				Health:   health,
				Metrics:  srv.MetricsHandler(),
				Logger:   log,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info("http server listening", zap.String("addr", hs.Addr))
			if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
