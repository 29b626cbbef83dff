package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tracegate/tracegate/internal/history"
)

// historyOutput is the structured result of the history command.
type historyOutput struct {
	PipelineID string         `json:"pipeline_id"`
	Runs       []*history.Run `json:"runs"`
}

// NewHistoryCommand creates the history command: lists stored runs for
// a pipeline, newest first.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var (
		baselineDB string
		pipelineID string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored baseline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pipelineID == "" {
				return NewExitError(ExitCommandError, "--pipeline is required")
			}
			store, err := history.Open(baselineDB)
			if err != nil {
				return WrapExitError(ExitCommandError, "open baseline db", err)
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context(), pipelineID, limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "list runs", err)
			}

			out := historyOutput{PipelineID: pipelineID, Runs: runs}
			renderer := &Renderer{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return renderer.Emit(out, renderHistoryText(out))
		},
	}

	cmd.Flags().StringVar(&baselineDB, "baseline-db", "tracegate.db", "history database path")
	cmd.Flags().StringVar(&pipelineID, "pipeline", "", "pipeline id to list")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func renderHistoryText(out historyOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline %q: %d runs\n", out.PipelineID, len(out.Runs))
	for _, run := range out.Runs {
		fmt.Fprintf(&b, "  %s  %s  health=%.1f completeness=%.1f broken=%d\n",
			run.CreatedAt.Format(time.RFC3339), run.RunToken,
			run.Health.Overall, run.Report.CompletenessPct, run.Report.ChainsBroken)
	}
	return b.String()
}
