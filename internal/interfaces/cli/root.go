// Package cli implements the filament command tree: file-based matching runs
// and report conversion, without requiring any backing infrastructure.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	logLevel string
}

// NewRootCommand builds the filament root command.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "filament",
		Short: "Filament — investigative-lead matching for unidentified remains and missing persons",
		Long: "Filament pairs unidentified-remains cases with missing-person cases by\n" +
			"rare-token blocking and composite multi-signal scoring. Its output is a\n" +
			"ranked list of investigative leads, never identifications.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		"log level (debug, info, warn, error)")

	cmd.AddCommand(newMatchCommand(opts))
	cmd.AddCommand(newReportCommand())
	return cmd
}

func (o *rootOptions) logger() (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:  o.logLevel,
		Format: "console",
	})
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}
