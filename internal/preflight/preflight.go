// Package preflight validates an initial context and intended phase
// order against a contract before any phase executes. Three independent
// checks run on every call: field readiness, seed enrichment, and the
// phase dataflow graph. Findings never abort checking; the checker
// collects everything and the caller reads one Result.
package preflight

import (
	"fmt"

	"github.com/tracegate/tracegate/internal/contract"
	"github.com/tracegate/tracegate/internal/ctxval"
)

// CheckKind identifies which pre-flight check produced a violation.
type CheckKind string

const (
	CheckFieldReadiness CheckKind = "field_readiness"
	CheckSeedEnrichment CheckKind = "seed_enrichment"
	CheckPhaseGraph     CheckKind = "phase_graph"
)

// ViolationKind categorizes a single finding.
type ViolationKind string

const (
	// ViolationNotReady: an entry-required field is neither seeded nor
	// produced by an earlier phase.
	ViolationNotReady ViolationKind = "not_ready"

	// ViolationMissingEnrichment: an enrichment field is not a real
	// value in the initial context.
	ViolationMissingEnrichment ViolationKind = "missing_enrichment"

	// ViolationDanglingRead: a required field no phase in the order
	// produces and the seed does not carry.
	ViolationDanglingRead ViolationKind = "dangling_read"

	// ViolationDeadWrite: a produced field no phase in the order
	// requires. Always advisory.
	ViolationDeadWrite ViolationKind = "dead_write"
)

// Violation is one pre-flight finding.
type Violation struct {
	Check    CheckKind         `json:"check"`
	Kind     ViolationKind     `json:"kind"`
	Phase    string            `json:"phase"`
	Field    string            `json:"field"`
	Severity contract.Severity `json:"severity"`
	Message  string            `json:"message"`
}

// Result is the outcome of a pre-flight check.
type Result struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`

	// Detail lists per category, in discovery order.
	NotReady          []string `json:"not_ready,omitempty"`
	MissingEnrichment []string `json:"missing_enrichment,omitempty"`
	DanglingReads     []string `json:"dangling_reads,omitempty"`
	DeadWrites        []string `json:"dead_writes,omitempty"`

	BlockingCount int `json:"blocking_count"`
	WarningCount  int `json:"warning_count"`
	AdvisoryCount int `json:"advisory_count"`
}

func (r *Result) add(v Violation) {
	r.Violations = append(r.Violations, v)
	switch v.Severity {
	case contract.SeverityBlocking:
		r.BlockingCount++
		r.Passed = false
	case contract.SeverityWarning:
		r.WarningCount++
	default:
		r.AdvisoryCount++
	}
}

// Checker runs pre-flight validation. Stateless; safe for concurrent use.
type Checker struct{}

// NewChecker creates a pre-flight checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Check validates (contract, initial context, phase order).
// Passed is false iff at least one BLOCKING-severity violation exists
// across the three checks. A nil or empty order defaults to the
// contract's declared phase order.
func (ck *Checker) Check(c *contract.ContextContract, initial *ctxval.Context, order []string) *Result {
	if len(order) == 0 {
		order = c.PhaseOrder()
	}

	result := &Result{Passed: true}
	ck.checkFieldReadiness(c, initial, order, result)
	ck.checkSeedEnrichment(c, initial, result)
	ck.checkPhaseGraph(c, initial, order, result)
	return result
}

// checkFieldReadiness walks the phase order tracking the running set of
// produced fields. An entry-required field is ready if it resolves to a
// real value in the initial context or an earlier phase produces it.
func (ck *Checker) checkFieldReadiness(c *contract.ContextContract, initial *ctxval.Context, order []string, result *Result) {
	produced := make(map[string]bool)

	for _, name := range order {
		phase, ok := c.Phase(name)
		if !ok {
			continue
		}
		for _, spec := range phase.Entry.Required {
			if produced[spec.Name] || ctxval.Ready(initial.Resolve(spec.Name)) {
				continue
			}
			result.NotReady = append(result.NotReady, spec.Name)
			result.add(Violation{
				Check:    CheckFieldReadiness,
				Kind:     ViolationNotReady,
				Phase:    name,
				Field:    spec.Name,
				Severity: spec.Severity,
				Message:  fmt.Sprintf("field %q required by phase %q is not seeded and no earlier phase produces it", spec.Name, name),
			})
		}
		for _, field := range phase.ProducedFields() {
			produced[field] = true
		}
	}
}

// checkSeedEnrichment verifies every phase's enrichment fields are real
// values in the initial context. Enrichment fields are never produced
// by earlier phases, so phase order is irrelevant here. ADVISORY
// enrichment fields are exempt.
func (ck *Checker) checkSeedEnrichment(c *contract.ContextContract, initial *ctxval.Context, result *Result) {
	for _, phase := range c.Phases() {
		for _, spec := range phase.Entry.Enrichment {
			if spec.Severity == contract.SeverityAdvisory {
				continue
			}
			if ctxval.Ready(initial.Resolve(spec.Name)) {
				continue
			}
			result.MissingEnrichment = append(result.MissingEnrichment, spec.Name)
			result.add(Violation{
				Check:    CheckSeedEnrichment,
				Kind:     ViolationMissingEnrichment,
				Phase:    phase.Name,
				Field:    spec.Name,
				Severity: spec.Severity,
				Message:  fmt.Sprintf("enrichment field %q for phase %q must be seeded in the initial context", spec.Name, phase.Name),
			})
		}
	}
}

// checkPhaseGraph builds requires/produces maps over the order and
// reports dangling reads (required, never produced, not seeded) and
// dead writes (produced, never required by any phase in the order).
func (ck *Checker) checkPhaseGraph(c *contract.ContextContract, initial *ctxval.Context, order []string, result *Result) {
	type producer struct {
		phase string
		index int
	}
	requiredBy := make(map[string][]string) // field -> requiring phases
	producedBy := make(map[string][]producer)

	for i, name := range order {
		phase, ok := c.Phase(name)
		if !ok {
			continue
		}
		for _, spec := range phase.Entry.Required {
			requiredBy[spec.Name] = append(requiredBy[spec.Name], name)
		}
		for _, field := range phase.ProducedFields() {
			producedBy[field] = append(producedBy[field], producer{phase: name, index: i})
		}
	}

	// Dangling reads, in order of the reading phase.
	for i, name := range order {
		phase, ok := c.Phase(name)
		if !ok {
			continue
		}
		for _, spec := range phase.Entry.Required {
			if ctxval.Ready(initial.Resolve(spec.Name)) {
				continue
			}
			producedEarlier := false
			for _, p := range producedBy[spec.Name] {
				if p.index < i {
					producedEarlier = true
					break
				}
			}
			if producedEarlier {
				continue
			}
			result.DanglingReads = append(result.DanglingReads, spec.Name)
			result.add(Violation{
				Check:    CheckPhaseGraph,
				Kind:     ViolationDanglingRead,
				Phase:    name,
				Field:    spec.Name,
				Severity: spec.Severity,
				Message:  fmt.Sprintf("dangling read: %q required by phase %q has no producer in the order and is not seeded", spec.Name, name),
			})
		}
	}

	// Dead writes, in order of the producing phase. Advisory only.
	seenDead := make(map[string]bool)
	for _, name := range order {
		phase, ok := c.Phase(name)
		if !ok {
			continue
		}
		for _, field := range phase.ProducedFields() {
			if len(requiredBy[field]) > 0 || seenDead[field] {
				continue
			}
			seenDead[field] = true
			result.DeadWrites = append(result.DeadWrites, field)
			result.add(Violation{
				Check:    CheckPhaseGraph,
				Kind:     ViolationDeadWrite,
				Phase:    name,
				Field:    field,
				Severity: contract.SeverityAdvisory,
				Message:  fmt.Sprintf("dead write: %q produced by phase %q is required by no phase in the order", field, name),
			})
		}
	}
}
