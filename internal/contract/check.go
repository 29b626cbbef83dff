package contract

import (
	"fmt"

	"github.com/tracegate/tracegate/internal/ctxval"
)

// CheckOptions tunes a boundary field check.
type CheckOptions struct {
	// ApplyDefaults writes contract defaults for absent fields into the
	// context. The runtime guard enables this; post-execution checks do
	// not (re-checking a finished run must not mutate its context).
	ApplyDefaults bool
}

// CheckFields validates a field list against a context and builds the
// boundary result. The rules, per field:
//
//   - absent with a declared default: passes as defaulted
//   - absent without a default: fails with the field's severity
//   - present but a placeholder value: fails with the field's severity
//   - present with a real value: passes
//
// Only BLOCKING failures fail the result; WARNING failures are recorded
// in Warnings and ADVISORY failures only in the field list.
func CheckFields(phase string, direction Direction, specs []FieldSpec, ctx *ctxval.Context, opts CheckOptions) *ValidationResult {
	result := &ValidationResult{
		Passed:            true,
		Phase:             phase,
		Direction:         direction,
		PropagationStatus: StatusPropagated,
	}

	for _, spec := range specs {
		fr := FieldResult{Name: spec.Name, Severity: spec.Severity}
		val, ok := ctx.Resolve(spec.Name)
		fr.Present = ok

		switch {
		case !ok && spec.HasDefault():
			fr.Defaulted = true
			fr.Passed = true
			fr.Message = fmt.Sprintf("absent, default %s applied", ctxval.Format(spec.Default))
			if opts.ApplyDefaults {
				ctx.Set(spec.Name, spec.Default)
			}
			result.PropagationStatus = WorstStatus(result.PropagationStatus, StatusDefaulted)

		case !ok:
			fr.Passed = false
			fr.Message = "required field absent"

		case ctxval.IsPlaceholder(val):
			fr.Passed = false
			fr.Message = fmt.Sprintf("placeholder value %s", ctxval.Format(val))

		default:
			fr.Passed = true
		}

		if !fr.Passed {
			switch spec.Severity {
			case SeverityBlocking:
				result.BlockingFailures = append(result.BlockingFailures, spec.Name)
				result.Passed = false
				result.PropagationStatus = WorstStatus(result.PropagationStatus, StatusFailed)
			case SeverityWarning:
				result.Warnings = append(result.Warnings, spec.Name)
				result.PropagationStatus = WorstStatus(result.PropagationStatus, StatusPartial)
			default:
				// ADVISORY misses are visible in Fields only.
			}
		}
		result.Fields = append(result.Fields, fr)
	}

	return result
}
