// Package drift compares two versions of a contract structurally and
// classifies every change as breaking or not. No execution state is
// involved: drift is a property of the schemas alone.
//
// Breaking rules, from the consumer's point of view:
//
//   - removed phase: breaking (downstream phases may consume its outputs)
//   - BLOCKING field added to entry/enrichment: breaking (new demand)
//   - field removed from entry/enrichment: never breaking (relaxation)
//   - field added to exit: never breaking (new supply)
//   - field removed from exit: always breaking (lost supply)
//   - severity escalated to BLOCKING: breaking; any other change is not
//   - removed chain: breaking (verification lost)
package drift

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/tracegate/tracegate/internal/contract"
)

// ChangeType identifies one kind of schema change.
type ChangeType string

const (
	ChangePhaseAdded      ChangeType = "phase_added"
	ChangePhaseRemoved    ChangeType = "phase_removed"
	ChangeFieldAdded      ChangeType = "field_added"
	ChangeFieldRemoved    ChangeType = "field_removed"
	ChangeSeverityChanged ChangeType = "severity_changed"
	ChangeChainAdded      ChangeType = "chain_added"
	ChangeChainRemoved    ChangeType = "chain_removed"

	// ChangeVersionAdvisory flags breaking drift that the version
	// numbers do not acknowledge with a major bump.
	ChangeVersionAdvisory ChangeType = "version_advisory"
)

// FieldDirection names the contract list a field change happened in.
type FieldDirection string

const (
	DirEntryRequired   FieldDirection = "entry.required"
	DirEntryEnrichment FieldDirection = "entry.enrichment"
	DirExitRequired    FieldDirection = "exit.required"
	DirExitOptional    FieldDirection = "exit.optional"
)

// Change is a single schema change between two contract versions.
type Change struct {
	Type        ChangeType     `json:"change_type"`
	Phase       string         `json:"phase,omitempty"`
	Field       string         `json:"field,omitempty"`
	Direction   FieldDirection `json:"direction,omitempty"`
	Breaking    bool           `json:"breaking"`
	Description string         `json:"description"`
	OldValue    string         `json:"old_value,omitempty"`
	NewValue    string         `json:"new_value,omitempty"`
}

// Report aggregates all changes between two contract versions.
type Report struct {
	OldPipelineID    string `json:"old_pipeline_id"`
	NewPipelineID    string `json:"new_pipeline_id"`
	OldSchemaVersion string `json:"old_schema_version"`
	NewSchemaVersion string `json:"new_schema_version"`

	Changes []Change `json:"changes,omitempty"`

	BreakingCount      int  `json:"breaking_count"`
	NonBreakingCount   int  `json:"non_breaking_count"`
	HasBreakingChanges bool `json:"has_breaking_changes"`
}

// TotalChanges returns the total change count.
func (r *Report) TotalChanges() int {
	return len(r.Changes)
}

func (r *Report) add(c Change) {
	r.Changes = append(r.Changes, c)
	if c.Breaking {
		r.BreakingCount++
		r.HasBreakingChanges = true
	} else {
		r.NonBreakingCount++
	}
}

// Detector compares contract versions. Stateless; safe for concurrent
// use.
type Detector struct{}

// NewDetector creates a drift detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Compare diffs old against new and classifies every change.
func (d *Detector) Compare(oldC, newC *contract.ContextContract) *Report {
	report := &Report{
		OldPipelineID:    oldC.PipelineID,
		NewPipelineID:    newC.PipelineID,
		OldSchemaVersion: oldC.SchemaVersion,
		NewSchemaVersion: newC.SchemaVersion,
	}

	d.comparePhases(oldC, newC, report)
	d.compareChains(oldC, newC, report)
	d.versionAdvisory(report)
	return report
}

func (d *Detector) comparePhases(oldC, newC *contract.ContextContract, report *Report) {
	for _, p := range newC.Phases() {
		if _, ok := oldC.Phase(p.Name); !ok {
			report.add(Change{
				Type:        ChangePhaseAdded,
				Phase:       p.Name,
				Breaking:    false,
				Description: fmt.Sprintf("phase %q added", p.Name),
			})
		}
	}
	for _, p := range oldC.Phases() {
		newPhase, ok := newC.Phase(p.Name)
		if !ok {
			report.add(Change{
				Type:        ChangePhaseRemoved,
				Phase:       p.Name,
				Breaking:    true,
				Description: fmt.Sprintf("phase %q removed; downstream phases may depend on its outputs", p.Name),
			})
			continue
		}
		d.compareFieldLists(p.Name, DirEntryRequired, p.Entry.Required, newPhase.Entry.Required, report)
		d.compareFieldLists(p.Name, DirEntryEnrichment, p.Entry.Enrichment, newPhase.Entry.Enrichment, report)
		d.compareFieldLists(p.Name, DirExitRequired, p.Exit.Required, newPhase.Exit.Required, report)
		d.compareFieldLists(p.Name, DirExitOptional, p.Exit.Optional, newPhase.Exit.Optional, report)
	}
}

// entryDirection reports whether a field direction demands data from
// the caller (entry side) rather than supplying it (exit side).
func entryDirection(dir FieldDirection) bool {
	return dir == DirEntryRequired || dir == DirEntryEnrichment
}

func (d *Detector) compareFieldLists(phase string, dir FieldDirection, oldFields, newFields []contract.FieldSpec, report *Report) {
	oldByName := make(map[string]contract.FieldSpec, len(oldFields))
	for _, f := range oldFields {
		oldByName[f.Name] = f
	}
	newByName := make(map[string]contract.FieldSpec, len(newFields))
	for _, f := range newFields {
		newByName[f.Name] = f
	}

	for _, f := range newFields {
		old, existed := oldByName[f.Name]
		if !existed {
			breaking := entryDirection(dir) && f.Severity == contract.SeverityBlocking
			desc := fmt.Sprintf("field %q added to %s of phase %q", f.Name, dir, phase)
			if breaking {
				desc += " with BLOCKING severity; existing callers will fail it"
			}
			report.add(Change{
				Type:        ChangeFieldAdded,
				Phase:       phase,
				Field:       f.Name,
				Direction:   dir,
				Breaking:    breaking,
				Description: desc,
				NewValue:    string(f.Severity),
			})
			continue
		}
		if old.Severity != f.Severity {
			escalated := f.Severity == contract.SeverityBlocking && old.Severity != contract.SeverityBlocking
			report.add(Change{
				Type:        ChangeSeverityChanged,
				Phase:       phase,
				Field:       f.Name,
				Direction:   dir,
				Breaking:    escalated,
				Description: fmt.Sprintf("field %q in %s of phase %q changed severity %s -> %s", f.Name, dir, phase, old.Severity, f.Severity),
				OldValue:    string(old.Severity),
				NewValue:    string(f.Severity),
			})
		}
	}

	for _, f := range oldFields {
		if _, kept := newByName[f.Name]; kept {
			continue
		}
		// Exit removals break downstream consumers; entry removals
		// only relax a requirement.
		breaking := !entryDirection(dir)
		desc := fmt.Sprintf("field %q removed from %s of phase %q", f.Name, dir, phase)
		if breaking {
			desc += "; downstream phases consume exit fields as entry requirements"
		}
		report.add(Change{
			Type:        ChangeFieldRemoved,
			Phase:       phase,
			Field:       f.Name,
			Direction:   dir,
			Breaking:    breaking,
			Description: desc,
			OldValue:    string(f.Severity),
		})
	}
}

func (d *Detector) compareChains(oldC, newC *contract.ContextContract, report *Report) {
	oldByID := make(map[string]contract.PropagationChainSpec, len(oldC.Chains))
	for _, ch := range oldC.Chains {
		oldByID[ch.ChainID] = ch
	}
	newByID := make(map[string]contract.PropagationChainSpec, len(newC.Chains))
	for _, ch := range newC.Chains {
		newByID[ch.ChainID] = ch
	}

	for _, ch := range newC.Chains {
		if _, existed := oldByID[ch.ChainID]; !existed {
			report.add(Change{
				Type:        ChangeChainAdded,
				Field:       ch.ChainID,
				Breaking:    false,
				Description: fmt.Sprintf("propagation chain %q added", ch.ChainID),
			})
		}
	}
	for _, ch := range oldC.Chains {
		if _, kept := newByID[ch.ChainID]; kept {
			continue
		}
		report.add(Change{
			Type:        ChangeChainRemoved,
			Field:       ch.ChainID,
			Breaking:    true,
			Description: fmt.Sprintf("propagation chain %q removed; verification lost", ch.ChainID),
		})
	}
}

// versionAdvisory appends a non-breaking advisory when the report has
// breaking changes but the schema versions do not show a major bump.
// Non-semver versions skip the advisory silently.
func (d *Detector) versionAdvisory(report *Report) {
	if !report.HasBreakingChanges {
		return
	}
	oldV, err := semver.NewVersion(report.OldSchemaVersion)
	if err != nil {
		return
	}
	newV, err := semver.NewVersion(report.NewSchemaVersion)
	if err != nil {
		return
	}
	if newV.Major() > oldV.Major() {
		return
	}
	report.add(Change{
		Type:     ChangeVersionAdvisory,
		Breaking: false,
		Description: fmt.Sprintf("%d breaking changes between %s and %s without a major version bump",
			report.BreakingCount, report.OldSchemaVersion, report.NewSchemaVersion),
		OldValue: report.OldSchemaVersion,
		NewValue: report.NewSchemaVersion,
	})
}
