package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracegate/tracegate/internal/drift"
)

// NewDriftCommand creates the drift command: structural diff of two
// contract versions.
func NewDriftCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drift <old.yaml> <new.yaml>",
		Short: "Compare two contract versions",
		Long:  "Diffs two contract documents structurally and classifies every change as breaking or not.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldC, err := loadContract(opts, args[0])
			if err != nil {
				return err
			}
			newC, err := loadContract(opts, args[1])
			if err != nil {
				return err
			}

			report := drift.NewDetector().Compare(oldC, newC)
			opts.Logger().Debug("drift comparison complete",
				zap.Int("changes", report.TotalChanges()),
				zap.Int("breaking", report.BreakingCount))

			renderer := &Renderer{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if err := renderer.Emit(report, renderDriftText(report)); err != nil {
				return err
			}
			if report.HasBreakingChanges {
				return NewExitError(ExitFailure, "breaking contract drift")
			}
			return nil
		},
	}
}

func renderDriftText(report *drift.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: drift %s -> %s: %d changes (%d breaking, %d non-breaking)\n",
		passMark(!report.HasBreakingChanges),
		report.OldSchemaVersion, report.NewSchemaVersion,
		report.TotalChanges(), report.BreakingCount, report.NonBreakingCount)
	for _, ch := range report.Changes {
		marker := " "
		if ch.Breaking {
			marker = "!"
		}
		fmt.Fprintf(&b, "  %s %s: %s\n", marker, ch.Type, ch.Description)
	}
	return b.String()
}
