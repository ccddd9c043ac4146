package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldline/routecache/auth"
	"github.com/fieldline/routecache/config"
	"github.com/fieldline/routecache/geo"
	"github.com/fieldline/routecache/lookup"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// lookupFlags select where a one-shot lookup runs: against a running server
// when --server is set, in-process otherwise.
type lookupFlags struct {
	server  string
	apiKey  string
	timeout time.Duration
}

func (f *lookupFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "gRPC address of a running routecache (in-process lookup when empty)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key sent to --server")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "lookup timeout")
}

// backend returns the lookup.Backend subset the commands need and a cleanup
// function.
func (f *lookupFlags) backend(ctx context.Context, configPath string) (context.Context, lookupBackend, func(), error) {
	if f.server != "" {
		conn, err := grpc.NewClient(f.server, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return ctx, nil, nil, err
		}
		if f.apiKey != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, auth.MetadataKey, f.apiKey)
		}
		return ctx, remoteBackend{lookup.NewClient(conn)}, func() { _ = conn.Close() }, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return ctx, nil, nil, err
	}
	a, err := newApp(cfg, zap.NewNop(), nil, nil)
	if err != nil {
		return ctx, nil, nil, err
	}
	return ctx, a.service, a.Close, nil
}

type lookupBackend interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
	DriveMinutes(ctx context.Context, q geo.RouteQuery) (float64, error)
}

type remoteBackend struct {
	c *lookup.Client
}

func (r remoteBackend) Geocode(ctx context.Context, address string) (geo.Point, error) {
	return r.c.Geocode(ctx, address)
}

func (r remoteBackend) DriveMinutes(ctx context.Context, q geo.RouteQuery) (float64, error) {
	return r.c.DriveMinutes(ctx, q)
}

func newGeocodeCmd(configPath *string) *cobra.Command {
	var f lookupFlags
	cmd := &cobra.Command{
		Use:   "geocode <address>",
		Short: "Resolve an address to coordinates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd.Context(), f.timeout)
			defer cancel()
			ctx, b, closeFn, err := f.backend(ctx, *configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			p, err := b.Geocode(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newDriveTimeCmd(configPath *string) *cobra.Command {
	var (
		f        lookupFlags
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "drivetime --from lat,lng --to lat,lng",
		Short: "Estimate the driving time between two points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := geo.ParsePoint(from)
			if err != nil {
				return err
			}
			dst, err := geo.ParsePoint(to)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd.Context(), f.timeout)
			defer cancel()
			ctx, b, closeFn, err := f.backend(ctx, *configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			m, err := b.DriveMinutes(ctx, geo.Route(src, dst))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.1f min\n", m)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "origin as lat,lng")
	cmd.Flags().StringVar(&to, "to", "", "destination as lat,lng")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	f.register(cmd)
	return cmd
}
