package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/google/uuid"

	"github.com/tracegate/tracegate/internal/health"
	"github.com/tracegate/tracegate/internal/history"
	"github.com/tracegate/tracegate/internal/postexec"
)

// chainsOutput bundles the post-execution report with the health score
// derived from it.
type chainsOutput struct {
	Report *postexec.Report `json:"report"`
	Health *health.Score    `json:"health"`
}

// NewChainsCommand creates the chains command: post-execution chain
// integrity and final-exit validation against a final context.
func NewChainsCommand(opts *RootOptions) *cobra.Command {
	var (
		contextPath string
		phasesFlag  string
		baselineDB  string
	)

	cmd := &cobra.Command{
		Use:   "chains <contract.yaml>",
		Short: "Validate propagation chains after a run",
		Long: "Re-checks a finished run's final context: chain integrity end-to-end\n" +
			"and final-exit completeness. Optionally records the run as a baseline.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContract(opts, args[0])
			if err != nil {
				return err
			}
			final, err := loadContext(opts, contextPath)
			if err != nil {
				return err
			}
			order := parsePhases(phasesFlag)
			if order == nil {
				order = c.PhaseOrder()
			}

			report := postexec.NewValidator().Validate(c, final, order, nil)
			score := health.NewDefaultScorer().Compute(nil, nil, report)
			opts.Logger().Debug("post-execution validation complete",
				zap.Bool("passed", report.Passed),
				zap.Int("chains_broken", report.ChainsBroken),
				zap.Float64("health", score.Overall))

			if baselineDB != "" {
				if err := saveBaseline(cmd, opts, baselineDB, c.PipelineID, c.SchemaVersion, report, score); err != nil {
					return err
				}
			}

			out := chainsOutput{Report: report, Health: score}
			renderer := &Renderer{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if err := renderer.Emit(out, renderChainsText(out)); err != nil {
				return err
			}
			if !report.Passed {
				return NewExitError(ExitFailure, "post-execution validation failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contextPath, "context", "", "final context YAML file")
	cmd.Flags().StringVar(&phasesFlag, "phases", "", "comma-separated phase order (default: contract order)")
	cmd.Flags().StringVar(&baselineDB, "baseline-db", "", "record this run in the given history database")
	return cmd
}

func saveBaseline(cmd *cobra.Command, opts *RootOptions, dbPath, pipelineID, schemaVersion string, report *postexec.Report, score *health.Score) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "open baseline db", err)
	}
	defer store.Close()

	run := &history.Run{
		PipelineID:    pipelineID,
		SchemaVersion: schemaVersion,
		RunToken:      uuid.Must(uuid.NewV7()).String(),
		Report:        report,
		Health:        score,
	}
	if err := store.Save(cmd.Context(), run); err != nil {
		return WrapExitError(ExitCommandError, "save baseline", err)
	}
	opts.Logger().Debug("baseline saved",
		zap.String("run_token", run.RunToken),
		zap.String("db", dbPath))
	return nil
}

func renderChainsText(out chainsOutput) string {
	var b strings.Builder
	r := out.Report
	fmt.Fprintf(&b, "%s: chains %d/%d intact (%d degraded, %d broken), completeness %.1f%%, health %.1f\n",
		passMark(r.Passed), r.ChainsIntact, r.ChainsTotal, r.ChainsDegraded, r.ChainsBroken,
		r.CompletenessPct, out.Health.Overall)
	for _, ch := range r.Chains {
		if ch.Status == postexec.ChainIntact {
			continue
		}
		fmt.Fprintf(&b, "  [%s] %s: %s\n", ch.Status, ch.ChainID, ch.Message)
	}
	if r.FinalExit != nil && !r.FinalExit.Passed {
		fmt.Fprintf(&b, "  final exit %q blocked on [%s]\n",
			r.FinalExit.Phase, strings.Join(r.FinalExit.BlockingFailures, ", "))
	}
	return b.String()
}
