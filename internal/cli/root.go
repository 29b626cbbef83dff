// Package cli implements the tracegate command line. Commands load
// contracts and contexts, run the validation layers, and render their
// reports; nothing here adds semantics on top of the core packages.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"

	logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// Logger returns the diagnostic logger. A no-op logger is returned
// until the root command has run its PersistentPreRunE.
func (o *RootOptions) Logger() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

// NewRootCommand creates the root command for the tracegate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tracegate",
		Short: "tracegate - contract validation for phase pipelines",
		Long: "Validates pipeline execution contexts against declarative phase contracts:\n" +
			"pre-flight readiness, runtime boundaries, propagation chains, health\n" +
			"scoring, contract drift, and regression gating.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Verbose {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				opts.logger = logger
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose diagnostics on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPreflightCommand(opts))
	cmd.AddCommand(NewChainsCommand(opts))
	cmd.AddCommand(NewDriftCommand(opts))
	cmd.AddCommand(NewGateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
