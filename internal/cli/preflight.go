package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracegate/tracegate/internal/preflight"
)

// NewPreflightCommand creates the preflight command: Layer 3 checks
// against an initial context and intended phase order.
func NewPreflightCommand(opts *RootOptions) *cobra.Command {
	var (
		contextPath string
		phasesFlag  string
	)

	cmd := &cobra.Command{
		Use:   "preflight <contract.yaml>",
		Short: "Check readiness before a run",
		Long: "Runs field readiness, seed enrichment, and phase graph checks against\n" +
			"an initial context and intended phase order.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContract(opts, args[0])
			if err != nil {
				return err
			}
			initial, err := loadContext(opts, contextPath)
			if err != nil {
				return err
			}
			order := parsePhases(phasesFlag)

			result := preflight.NewChecker().Check(c, initial, order)
			opts.Logger().Debug("preflight complete",
				zap.Bool("passed", result.Passed),
				zap.Int("violations", len(result.Violations)))

			renderer := &Renderer{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if err := renderer.Emit(result, renderPreflightText(result)); err != nil {
				return err
			}
			if !result.Passed {
				return NewExitError(ExitFailure, "preflight failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contextPath, "context", "", "initial context YAML file")
	cmd.Flags().StringVar(&phasesFlag, "phases", "", "comma-separated phase order (default: contract order)")
	return cmd
}

func renderPreflightText(result *preflight.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: preflight - %d blocking, %d warning, %d advisory\n",
		passMark(result.Passed), result.BlockingCount, result.WarningCount, result.AdvisoryCount)
	for _, v := range result.Violations {
		fmt.Fprintf(&b, "  [%s] %s/%s %s\n", v.Severity, v.Check, v.Kind, v.Message)
	}
	return b.String()
}
