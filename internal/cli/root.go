// Package cli implements the routecache command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "routecache",
		Short: "Memoizing geocoding and drive-time lookup service.",
		Long: `routecache answers geocoding and drive-time lookups through
TTL + LRU caches in front of Nominatim and OSRM, over gRPC and HTTP.

Settings come from an optional JSON file (--config) overlaid by
ROUTECACHE_* environment variables.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (defaults apply when empty)")

	root.AddCommand(
		newServeCmd(&configPath),
		newSampleConfigCmd(),
		newGeocodeCmd(&configPath),
		newDriveTimeCmd(&configPath),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
