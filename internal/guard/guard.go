// Package guard validates execution contexts at phase boundaries while
// a pipeline runs. A Guard is bound to one contract and one enforcement
// mode and accumulates a record per executed phase; Summarize folds the
// records into a WorkflowRunSummary for the downstream layers.
//
// Thread-safety: a Guard performs no internal synchronization. One
// pipeline execution lineage owns one Guard; hosts running phases
// concurrently need one Guard per lineage or external locking.
package guard

import (
	"github.com/google/uuid"

	"github.com/tracegate/tracegate/internal/contract"
	"github.com/tracegate/tracegate/internal/ctxval"
)

// Mode controls how the guard reacts to BLOCKING boundary failures.
type Mode string

const (
	// ModeStrict returns a *BoundaryViolationError on blocking
	// failures; the scoped Phase helper aborts the protected body.
	ModeStrict Mode = "STRICT"

	// ModePermissive records blocking failures without erroring;
	// callers inspect result.Passed.
	ModePermissive Mode = "PERMISSIVE"

	// ModeAudit behaves like PERMISSIVE. The distinct name lets a
	// summary say whether failures were tolerated deliberately
	// (audit run) or as policy (permissive rollout).
	ModeAudit Mode = "AUDIT"
)

// ValidModes defines allowed enforcement modes.
var ValidModes = map[Mode]bool{
	ModeStrict:     true,
	ModePermissive: true,
	ModeAudit:      true,
}

// Guard is the stateful runtime boundary validator.
type Guard struct {
	contract *contract.ContextContract
	mode     Mode
	runToken string

	records []*contract.PhaseExecutionRecord
	pending map[string]*contract.PhaseExecutionRecord
	order   []string // pending phases in entry order
}

// New creates a guard bound to one contract and mode.
// An unknown mode falls back to PERMISSIVE, the non-raising default.
func New(c *contract.ContextContract, mode Mode) *Guard {
	if !ValidModes[mode] {
		mode = ModePermissive
	}
	return &Guard{
		contract: c,
		mode:     mode,
		runToken: newRunToken(),
		pending:  make(map[string]*contract.PhaseExecutionRecord),
	}
}

// newRunToken issues a time-sortable UUIDv7 identifying one guard run.
func newRunToken() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Mode returns the enforcement mode.
func (g *Guard) Mode() Mode {
	return g.mode
}

// RunToken returns the current run's identifier.
func (g *Guard) RunToken() string {
	return g.runToken
}

// EnterPhase validates the phase's entry-required and enrichment fields
// against the context, applying declared defaults for absent fields.
// It always returns the entry result; the error is non-nil only in
// STRICT mode when the entry boundary (entry or enrichment check) has
// BLOCKING failures, and for phases the contract does not declare.
func (g *Guard) EnterPhase(phase string, ctx *ctxval.Context) (*contract.ValidationResult, error) {
	pc, ok := g.contract.Phase(phase)
	if !ok {
		return nil, &ErrUnknownPhase{Phase: phase}
	}

	// Re-entering a phase closes its previous open record so every
	// boundary check stays visible in the summary.
	if _, open := g.pending[phase]; open {
		g.flush(phase)
	}

	opts := contract.CheckOptions{ApplyDefaults: true}
	entry := contract.CheckFields(phase, contract.DirectionEntry, pc.Entry.Required, ctx, opts)
	var enrichment *contract.ValidationResult
	if len(pc.Entry.Enrichment) > 0 {
		enrichment = contract.CheckFields(phase, contract.DirectionEnrichment, pc.Entry.Enrichment, ctx, opts)
	}

	rec := g.pendingRecord(phase)
	rec.Entry = entry
	rec.Enrichment = enrichment

	if g.mode == ModeStrict {
		blocking := append([]string{}, entry.BlockingFailures...)
		if enrichment != nil {
			blocking = append(blocking, enrichment.BlockingFailures...)
		}
		if len(blocking) > 0 {
			return entry, &BoundaryViolationError{
				Phase:     phase,
				Direction: contract.DirectionEntry,
				Fields:    blocking,
				Result:    entry,
			}
		}
	}
	return entry, nil
}

// ExitPhase validates the phase's exit-required fields against the
// context and completes the phase's execution record. The error is
// non-nil only in STRICT mode with BLOCKING failures, and for unknown
// phases.
func (g *Guard) ExitPhase(phase string, ctx *ctxval.Context) (*contract.ValidationResult, error) {
	pc, ok := g.contract.Phase(phase)
	if !ok {
		return nil, &ErrUnknownPhase{Phase: phase}
	}

	exit := contract.CheckFields(phase, contract.DirectionExit, pc.Exit.Required, ctx,
		contract.CheckOptions{ApplyDefaults: true})

	rec := g.pendingRecord(phase)
	rec.Exit = exit
	g.flush(phase)

	if g.mode == ModeStrict && len(exit.BlockingFailures) > 0 {
		return exit, &BoundaryViolationError{
			Phase:     phase,
			Direction: contract.DirectionExit,
			Fields:    append([]string{}, exit.BlockingFailures...),
			Result:    exit,
		}
	}
	return exit, nil
}

// Phase runs body between entry and exit validation. The execution
// record is appended regardless of mode or outcome:
//
//   - STRICT entry failure: body never runs, the violation is returned.
//   - body error: returned as-is; exit validation is skipped (exit
//     contracts describe normal completion).
//   - STRICT exit failure: returned after body completed.
//
// In PERMISSIVE and AUDIT modes body always runs and only its own error
// is ever returned.
func (g *Guard) Phase(name string, ctx *ctxval.Context, body func(*ctxval.Context) error) error {
	if _, err := g.EnterPhase(name, ctx); err != nil {
		g.flush(name)
		return err
	}

	if err := body(ctx); err != nil {
		g.flush(name)
		return err
	}

	_, err := g.ExitPhase(name, ctx)
	return err
}

// Records returns the completed execution records in entry order.
func (g *Guard) Records() []*contract.PhaseExecutionRecord {
	return g.records
}

// Reset clears all records and issues a fresh run token, readying the
// guard for another run against the same contract.
func (g *Guard) Reset() {
	g.records = nil
	g.pending = make(map[string]*contract.PhaseExecutionRecord)
	g.order = nil
	g.runToken = newRunToken()
}

// pendingRecord returns the open record for a phase, opening one if
// needed.
func (g *Guard) pendingRecord(phase string) *contract.PhaseExecutionRecord {
	if rec, ok := g.pending[phase]; ok {
		return rec
	}
	rec := &contract.PhaseExecutionRecord{Phase: phase}
	g.pending[phase] = rec
	g.order = append(g.order, phase)
	return rec
}

// flush moves a phase's open record into the completed list.
func (g *Guard) flush(phase string) {
	rec, ok := g.pending[phase]
	if !ok {
		return
	}
	delete(g.pending, phase)
	for i, name := range g.order {
		if name == phase {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.records = append(g.records, rec)
}

// flushAll flushes every open record in entry order. Called by
// Summarize so entered-but-never-exited phases still count.
func (g *Guard) flushAll() {
	for _, phase := range append([]string{}, g.order...) {
		g.flush(phase)
	}
}
