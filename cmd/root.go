// Package cmd defines and implements the CLI commands for the harvester
// executable.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Adaptive harvester for family events and locations",
		Long: `harvester collects kid-friendly events and locations from configured
web sources: feeds, calendars and HTML listing pages. It throttles per
domain, retries transient failures, enriches and deduplicates records,
and writes one merged JSON dataset.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")

	cmd.AddCommand(newHarvestCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}
