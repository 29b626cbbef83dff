package contract

import "fmt"

// Direction identifies which boundary contract a result came from.
type Direction string

const (
	DirectionEntry      Direction = "entry"
	DirectionExit       Direction = "exit"
	DirectionEnrichment Direction = "enrichment"
)

// FieldResult is the outcome of checking one field at one boundary.
type FieldResult struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`

	// Present reports whether the field resolved in the context
	// (before any default was applied).
	Present bool `json:"present"`

	// Defaulted reports whether the contract default covered an
	// absent field.
	Defaulted bool `json:"defaulted"`

	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// ValidationResult is the outcome of validating one phase boundary.
// A fresh value object per check; it never references the context.
type ValidationResult struct {
	Passed    bool          `json:"passed"`
	Phase     string        `json:"phase"`
	Direction Direction     `json:"direction"`
	Fields    []FieldResult `json:"fields,omitempty"`

	// BlockingFailures names the BLOCKING-severity fields that failed.
	BlockingFailures []string `json:"blocking_failures,omitempty"`

	// Warnings names the WARNING-severity fields that failed.
	Warnings []string `json:"warnings,omitempty"`

	PropagationStatus PropagationStatus `json:"propagation_status"`
}

// DefaultsApplied counts fields covered by a contract default.
func (r *ValidationResult) DefaultsApplied() int {
	n := 0
	for _, f := range r.Fields {
		if f.Defaulted {
			n++
		}
	}
	return n
}

// String renders a short summary for diagnostics.
func (r *ValidationResult) String() string {
	return fmt.Sprintf("%s/%s passed=%t status=%s blocking=%d warnings=%d",
		r.Phase, r.Direction, r.Passed, r.PropagationStatus,
		len(r.BlockingFailures), len(r.Warnings))
}

// PhaseExecutionRecord collects the boundary results of one executed
// phase. Any of the three results may be nil when the corresponding
// boundary was never checked (a crashed phase has no exit result).
type PhaseExecutionRecord struct {
	Phase      string            `json:"phase"`
	Entry      *ValidationResult `json:"entry_result,omitempty"`
	Exit       *ValidationResult `json:"exit_result,omitempty"`
	Enrichment *ValidationResult `json:"enrichment_result,omitempty"`
}

func (r *PhaseExecutionRecord) results() []*ValidationResult {
	out := make([]*ValidationResult, 0, 3)
	for _, res := range []*ValidationResult{r.Entry, r.Exit, r.Enrichment} {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

// Passed reports whether every present result passed.
func (r *PhaseExecutionRecord) Passed() bool {
	for _, res := range r.results() {
		if !res.Passed {
			return false
		}
	}
	return true
}

// PropagationStatus returns the worst status across present results,
// defaulting to PROPAGATED when none are present.
func (r *PhaseExecutionRecord) PropagationStatus() PropagationStatus {
	status := StatusPropagated
	for _, res := range r.results() {
		status = WorstStatus(status, res.PropagationStatus)
	}
	return status
}

// FieldsChecked counts field checks across present results.
func (r *PhaseExecutionRecord) FieldsChecked() int {
	n := 0
	for _, res := range r.results() {
		n += len(res.Fields)
	}
	return n
}

// BlockingFailures counts blocking failures across present results.
func (r *PhaseExecutionRecord) BlockingFailures() int {
	n := 0
	for _, res := range r.results() {
		n += len(res.BlockingFailures)
	}
	return n
}

// WarningCount counts warnings across present results.
func (r *PhaseExecutionRecord) WarningCount() int {
	n := 0
	for _, res := range r.results() {
		n += len(res.Warnings)
	}
	return n
}

// DefaultsApplied counts defaulted fields across present results.
func (r *PhaseExecutionRecord) DefaultsApplied() int {
	n := 0
	for _, res := range r.results() {
		n += res.DefaultsApplied()
	}
	return n
}
