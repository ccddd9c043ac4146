package cli

import (
	"fmt"

	"github.com/fieldline/routecache/config"
	"github.com/spf13/cobra"
)

func newSampleConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample-config <path>",
		Short: "Write a sample configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateSample(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sample configuration written to %s\n", args[0])
			return nil
		},
	}
}
