// Package cli implements opsctl, the operator tool for the dashboard
// backend: seeding stores, minting tokens, and exporting store data.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DatabaseURL string
	Verbose     bool
}

// NewRootCommand creates the root command for opsctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "opsctl",
		Short:         "opsctl - store operations dashboard admin",
		Long:          "Administrative commands for the store operations dashboard backend.",
		SilenceErrors: true, // main reports the error
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

func (o *RootOptions) logf(cmd *cobra.Command, format string, args ...any) {
	if o.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}
