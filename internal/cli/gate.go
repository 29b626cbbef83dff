package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracegate/tracegate/internal/gate"
	"github.com/tracegate/tracegate/internal/health"
	"github.com/tracegate/tracegate/internal/history"
	"github.com/tracegate/tracegate/internal/postexec"
)

// NewGateCommand creates the gate command: validates a final context,
// scores it, and gates it against the latest stored baseline.
func NewGateCommand(opts *RootOptions) *cobra.Command {
	var (
		contextPath         string
		phasesFlag          string
		baselineDB          string
		minHealth           float64
		maxCompletenessDrop float64
		maxBrokenIncrease   int
		allowBreaking       bool
		record              bool
	)

	cmd := &cobra.Command{
		Use:   "gate <contract.yaml>",
		Short: "Gate a run against its baseline",
		Long: "Runs post-execution validation and health scoring, loads the latest\n" +
			"baseline from the history database, and evaluates the regression gate.",
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

			store, err := history.Open(baselineDB)
			if err != nil {
				return WrapExitError(ExitCommandError, "open baseline db", err)
			}
			defer store.Close()

			baseline, err := store.LatestBaseline(cmd.Context(), c.PipelineID)
			if err != nil {
				return WrapExitError(ExitCommandError, "load baseline", err)
			}

			inputs := gate.Inputs{CurrentReport: report, CurrentHealth: score}
			if baseline != nil {
				inputs.BaselineReport = baseline.Report
				inputs.BaselineHealth = baseline.Health
				opts.Logger().Debug("baseline loaded",
					zap.String("run_token", baseline.RunToken),
					zap.Time("created_at", baseline.CreatedAt))
			} else {
				opts.Logger().Debug("no baseline for pipeline", zap.String("pipeline_id", c.PipelineID))
			}

			thresholds := gate.Thresholds{
				MinHealthScore:             minHealth,
				MaxCompletenessDrop:        maxCompletenessDrop,
				MaxBlockingFailureIncrease: maxBrokenIncrease,
			}
			result := gate.New(thresholds, allowBreaking).Evaluate(inputs)

			if record && result.Passed {
				if err := saveBaseline(cmd, opts, baselineDB, c.PipelineID, c.SchemaVersion, report, score); err != nil {
					return err
				}
			}

			renderer := &Renderer{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if err := renderer.Emit(result, renderGateText(result)); err != nil {
				return err
			}
			if !result.Passed {
				return NewExitError(ExitFailure, "regression gate failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contextPath, "context", "", "final context YAML file")
	cmd.Flags().StringVar(&phasesFlag, "phases", "", "comma-separated phase order (default: contract order)")
	cmd.Flags().StringVar(&baselineDB, "baseline-db", "tracegate.db", "history database path")
	cmd.Flags().Float64Var(&minHealth, "min-health", gate.DefaultThresholds().MinHealthScore, "minimum overall health score")
	cmd.Flags().Float64Var(&maxCompletenessDrop, "max-drop", gate.DefaultThresholds().MaxCompletenessDrop, "maximum completeness/health drop")
	cmd.Flags().IntVar(&maxBrokenIncrease, "max-broken-increase", gate.DefaultThresholds().MaxBlockingFailureIncrease, "maximum increase in broken chains")
	cmd.Flags().BoolVar(&allowBreaking, "allow-breaking-drift", false, "do not fail the gate on breaking contract drift")
	cmd.Flags().BoolVar(&record, "record", false, "record this run as the new baseline when the gate passes")
	return cmd
}

func renderGateText(result *gate.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: gate %d/%d checks passed\n",
		passMark(result.Passed), result.PassedChecks, result.TotalChecks)
	for _, c := range result.Checks {
		fmt.Fprintf(&b, "  %s %s: %s\n", passMark(c.Passed), c.Name, c.Message)
	}
	return b.String()
}
