package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tracegate/tracegate/internal/contract"
)

// BoundaryViolationError is returned in STRICT mode when a phase
// boundary has BLOCKING failures. It names every blocking field so the
// host can log or retry with full context.
type BoundaryViolationError struct {
	// Phase is the phase whose boundary failed.
	Phase string

	// Direction is the boundary that failed (entry or exit).
	Direction contract.Direction

	// Fields names every BLOCKING field that failed, including
	// enrichment fields checked at the entry boundary.
	Fields []string

	// Result is the boundary result that triggered the error.
	Result *contract.ValidationResult
}

// Error implements the error interface.
func (e *BoundaryViolationError) Error() string {
	return fmt.Sprintf("boundary violation: phase %q %s blocked on [%s]",
		e.Phase, e.Direction, strings.Join(e.Fields, ", "))
}

// IsBoundaryViolation returns true if the error is a boundary
// violation. Uses errors.As to handle wrapped errors.
func IsBoundaryViolation(err error) bool {
	var bv *BoundaryViolationError
	return errors.As(err, &bv)
}

// ErrUnknownPhase is returned when a boundary check names a phase the
// contract does not declare.
type ErrUnknownPhase struct {
	Phase string
}

func (e *ErrUnknownPhase) Error() string {
	return fmt.Sprintf("unknown phase %q: not declared in contract", e.Phase)
}
