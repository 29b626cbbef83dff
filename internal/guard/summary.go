package guard

import (
	"github.com/tracegate/tracegate/internal/contract"
)

// WorkflowRunSummary folds a run's execution records into aggregate
// counts for the post-execution and health layers.
type WorkflowRunSummary struct {
	RunToken string `json:"run_token"`
	Mode     Mode   `json:"mode"`

	Phases []*contract.PhaseExecutionRecord `json:"phases"`

	TotalPhases  int `json:"total_phases"`
	PassedPhases int `json:"passed_phases"`
	FailedPhases int `json:"failed_phases"`

	TotalFieldsChecked    int `json:"total_fields_checked"`
	TotalBlockingFailures int `json:"total_blocking_failures"`
	TotalWarnings         int `json:"total_warnings"`
	TotalDefaultsApplied  int `json:"total_defaults_applied"`

	OverallPassed bool                       `json:"overall_passed"`
	OverallStatus contract.PropagationStatus `json:"overall_status"`
}

// Record returns the execution record for a phase, if the run tracked
// it. When a phase was entered more than once the last record wins.
func (s *WorkflowRunSummary) Record(phase string) (*contract.PhaseExecutionRecord, bool) {
	for i := len(s.Phases) - 1; i >= 0; i-- {
		if s.Phases[i].Phase == phase {
			return s.Phases[i], true
		}
	}
	return nil, false
}

// Summarize folds the guard's records into a WorkflowRunSummary.
// Open records (entered, never exited) are closed first so crashed
// phases still count. A guard with no records summarizes as passed
// with PROPAGATED status.
func (g *Guard) Summarize() *WorkflowRunSummary {
	g.flushAll()

	s := &WorkflowRunSummary{
		RunToken:      g.runToken,
		Mode:          g.mode,
		Phases:        append([]*contract.PhaseExecutionRecord{}, g.records...),
		OverallPassed: true,
		OverallStatus: contract.StatusPropagated,
	}

	for _, rec := range s.Phases {
		s.TotalPhases++
		if rec.Passed() {
			s.PassedPhases++
		} else {
			s.FailedPhases++
			s.OverallPassed = false
		}
		s.TotalFieldsChecked += rec.FieldsChecked()
		s.TotalBlockingFailures += rec.BlockingFailures()
		s.TotalWarnings += rec.WarningCount()
		s.TotalDefaultsApplied += rec.DefaultsApplied()
		s.OverallStatus = contract.WorstStatus(s.OverallStatus, rec.PropagationStatus())
	}
	return s
}
