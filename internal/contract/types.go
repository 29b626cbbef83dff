// Package contract defines the declarative phase/field/chain schema the
// validation layers read, plus the shared boundary-result value objects
// they produce. A ContextContract is constructed once per pipeline
// version and is read-only for the life of a run.
package contract

import (
	"github.com/tracegate/tracegate/internal/ctxval"
)

// Severity classifies how a failed field check affects an outcome.
type Severity string

const (
	// SeverityBlocking fields must hold; a miss fails the check.
	SeverityBlocking Severity = "BLOCKING"

	// SeverityWarning fields should hold; a miss is recorded, never fatal.
	SeverityWarning Severity = "WARNING"

	// SeverityAdvisory fields are informational only.
	SeverityAdvisory Severity = "ADVISORY"
)

// ValidSeverities defines allowed severity values.
var ValidSeverities = map[Severity]bool{
	SeverityBlocking: true,
	SeverityWarning:  true,
	SeverityAdvisory: true,
}

// PropagationStatus summarizes how well data moved through a boundary,
// ordered worst to best: FAILED > PARTIAL > DEFAULTED > PROPAGATED.
type PropagationStatus string

const (
	// StatusFailed means at least one blocking field was missing.
	StatusFailed PropagationStatus = "FAILED"

	// StatusPartial means non-blocking fields were missing.
	StatusPartial PropagationStatus = "PARTIAL"

	// StatusDefaulted means contract defaults filled one or more gaps.
	StatusDefaulted PropagationStatus = "DEFAULTED"

	// StatusPropagated means every checked field carried a real value.
	StatusPropagated PropagationStatus = "PROPAGATED"
)

// statusRank orders propagation statuses worst (highest) to best.
var statusRank = map[PropagationStatus]int{
	StatusFailed:     3,
	StatusPartial:    2,
	StatusDefaulted:  1,
	StatusPropagated: 0,
}

// WorstStatus returns the worse of two propagation statuses.
func WorstStatus(a, b PropagationStatus) PropagationStatus {
	if statusRank[a] >= statusRank[b] {
		return a
	}
	return b
}

// FieldSpec declares one field a boundary contract cares about.
type FieldSpec struct {
	// Name is the dot-path of the field, e.g. "config.db.host".
	Name string `json:"name"`

	// Severity controls how a miss is treated.
	Severity Severity `json:"severity"`

	// Default, when non-nil, is applied by the runtime guard for
	// absent fields instead of failing them.
	Default ctxval.Value `json:"default,omitempty"`
}

// HasDefault reports whether the field declares a default value.
func (f FieldSpec) HasDefault() bool {
	return f.Default != nil
}

// PhaseEntryContract declares what must exist when a phase starts.
type PhaseEntryContract struct {
	// Required fields must be present (or defaulted) on entry.
	Required []FieldSpec `json:"required,omitempty"`

	// Enrichment fields must be seeded into the initial context by the
	// host; no phase ever produces them.
	Enrichment []FieldSpec `json:"enrichment,omitempty"`
}

// PhaseExitContract declares what a phase must have produced on exit.
type PhaseExitContract struct {
	// Required fields must be present on exit.
	Required []FieldSpec `json:"required,omitempty"`

	// Optional fields may be produced; they count as produced for
	// downstream readiness analysis but are never validated.
	Optional []FieldSpec `json:"optional,omitempty"`
}

// PhaseContract pairs the entry and exit contracts of one phase.
type PhaseContract struct {
	Name  string             `json:"name"`
	Entry PhaseEntryContract `json:"entry"`
	Exit  PhaseExitContract  `json:"exit"`
}

// ProducedFields returns the names of all fields this phase produces
// (exit required plus exit optional).
func (p PhaseContract) ProducedFields() []string {
	out := make([]string, 0, len(p.Exit.Required)+len(p.Exit.Optional))
	for _, f := range p.Exit.Required {
		out = append(out, f.Name)
	}
	for _, f := range p.Exit.Optional {
		out = append(out, f.Name)
	}
	return out
}

// ChainEndpoint names one end of a propagation chain.
type ChainEndpoint struct {
	Phase string `json:"phase"`
	Field string `json:"field"`
}

// PropagationChainSpec declares that a value produced in one phase must
// reach a field in a later phase.
type PropagationChainSpec struct {
	ChainID     string        `json:"chain_id"`
	Source      ChainEndpoint `json:"source"`
	Destination ChainEndpoint `json:"destination"`

	// Verification, when non-empty, is a restricted expression
	// (see the verify package) evaluated against the resolved values
	// instead of the default presence checks.
	Verification string `json:"verification,omitempty"`
}

// ContextContract is the full declarative contract for one pipeline
// version: ordered phases plus propagation chains. Immutable after
// construction; all validators share one instance.
type ContextContract struct {
	PipelineID    string                 `json:"pipeline_id"`
	SchemaVersion string                 `json:"schema_version"`
	Chains        []PropagationChainSpec `json:"chains,omitempty"`

	phases []PhaseContract
	index  map[string]int
}

// New assembles a contract from its parts. Declaration order of phases
// is the default execution order. New never rejects; run Validate to
// collect authoring errors before trusting the contract.
func New(pipelineID, schemaVersion string, phases []PhaseContract, chains []PropagationChainSpec) *ContextContract {
	c := &ContextContract{
		PipelineID:    pipelineID,
		SchemaVersion: schemaVersion,
		Chains:        chains,
		phases:        phases,
		index:         make(map[string]int, len(phases)),
	}
	for i, p := range phases {
		if _, dup := c.index[p.Name]; !dup {
			c.index[p.Name] = i
		}
	}
	return c
}

// Phases returns the phase contracts in declaration order.
func (c *ContextContract) Phases() []PhaseContract {
	return c.phases
}

// Phase looks up a phase contract by name.
func (c *ContextContract) Phase(name string) (PhaseContract, bool) {
	i, ok := c.index[name]
	if !ok {
		return PhaseContract{}, false
	}
	return c.phases[i], true
}

// PhaseIndex returns the declaration position of a phase.
func (c *ContextContract) PhaseIndex(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// PhaseOrder returns phase names in declaration order - the default
// execution order when the host supplies none.
func (c *ContextContract) PhaseOrder() []string {
	names := make([]string, len(c.phases))
	for i, p := range c.phases {
		names[i] = p.Name
	}
	return names
}
