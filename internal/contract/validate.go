package contract

import (
	"fmt"

	"github.com/tracegate/tracegate/internal/verify"
)

// Authoring validation error codes (E100-E199)
const (
	// Contract-level errors (E100-E109)
	ErrPipelineIDEmpty    = "E100" // pipeline_id is required
	ErrSchemaVersionEmpty = "E101" // schema_version is required
	ErrNoPhases           = "E102" // at least one phase required
	ErrDuplicatePhase     = "E103" // duplicate phase name

	// Field errors (E110-E119)
	ErrFieldNameEmpty  = "E110" // field name is required
	ErrInvalidSeverity = "E111" // invalid severity value
	ErrDuplicateField  = "E112" // duplicate field in same list

	// Chain errors (E120-E129)
	ErrChainIDEmpty        = "E120" // chain_id is required
	ErrDuplicateChain      = "E121" // duplicate chain id
	ErrChainUnknownPhase   = "E122" // endpoint references unknown phase
	ErrChainEndpointEmpty  = "E123" // endpoint field is required
	ErrChainOrderInverted  = "E124" // source phase not before destination
	ErrInvalidVerification = "E125" // verification expression rejected
)

// ValidationError represents one contract authoring error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a contract for authoring errors.
// Returns all errors found (does not fail-fast). A contract with any
// authoring error must not be handed to the validation layers.
func Validate(c *ContextContract) []ValidationError {
	var errs []ValidationError

	if c.PipelineID == "" {
		errs = append(errs, ValidationError{
			Field:   "pipeline_id",
			Message: "pipeline_id is required and must be non-empty",
			Code:    ErrPipelineIDEmpty,
		})
	}
	if c.SchemaVersion == "" {
		errs = append(errs, ValidationError{
			Field:   "schema_version",
			Message: "schema_version is required and must be non-empty",
			Code:    ErrSchemaVersionEmpty,
		})
	}
	if len(c.phases) == 0 {
		errs = append(errs, ValidationError{
			Field:   "phases",
			Message: "at least one phase is required",
			Code:    ErrNoPhases,
		})
	}

	seenPhases := make(map[string]bool, len(c.phases))
	for i, phase := range c.phases {
		prefix := fmt.Sprintf("phases[%d]", i)
		if seenPhases[phase.Name] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".name",
				Message: fmt.Sprintf("duplicate phase name: %q", phase.Name),
				Code:    ErrDuplicatePhase,
			})
		}
		seenPhases[phase.Name] = true

		errs = append(errs, validateFieldList(prefix+".entry.required", phase.Entry.Required)...)
		errs = append(errs, validateFieldList(prefix+".entry.enrichment", phase.Entry.Enrichment)...)
		errs = append(errs, validateFieldList(prefix+".exit.required", phase.Exit.Required)...)
		errs = append(errs, validateFieldList(prefix+".exit.optional", phase.Exit.Optional)...)
	}

	errs = append(errs, validateChains(c)...)
	return errs
}

// validateFieldList checks one field list for empty names, bad
// severities, and duplicates within the list.
func validateFieldList(prefix string, specs []FieldSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(specs))

	for i, spec := range specs {
		field := fmt.Sprintf("%s[%d]", prefix, i)
		if spec.Name == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "field name is required and must be non-empty",
				Code:    ErrFieldNameEmpty,
			})
			continue
		}
		if seen[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate field %q in %s", spec.Name, prefix),
				Code:    ErrDuplicateField,
			})
		}
		seen[spec.Name] = true

		if !ValidSeverities[spec.Severity] {
			errs = append(errs, ValidationError{
				Field:   field + ".severity",
				Message: fmt.Sprintf("invalid severity %q: must be BLOCKING, WARNING, or ADVISORY", spec.Severity),
				Code:    ErrInvalidSeverity,
			})
		}
	}
	return errs
}

// validateChains checks propagation chain declarations.
func validateChains(c *ContextContract) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(c.Chains))

	for i, chain := range c.Chains {
		prefix := fmt.Sprintf("chains[%d]", i)
		if chain.ChainID == "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".chain_id",
				Message: "chain_id is required and must be non-empty",
				Code:    ErrChainIDEmpty,
			})
		} else {
			if seen[chain.ChainID] {
				errs = append(errs, ValidationError{
					Field:   prefix + ".chain_id",
					Message: fmt.Sprintf("duplicate chain id: %q", chain.ChainID),
					Code:    ErrDuplicateChain,
				})
			}
			seen[chain.ChainID] = true
		}

		srcIdx, srcOK := c.PhaseIndex(chain.Source.Phase)
		dstIdx, dstOK := c.PhaseIndex(chain.Destination.Phase)

		for _, ep := range []struct {
			name string
			end  ChainEndpoint
			ok   bool
		}{
			{"source", chain.Source, srcOK},
			{"destination", chain.Destination, dstOK},
		} {
			if !ep.ok {
				errs = append(errs, ValidationError{
					Field:   prefix + "." + ep.name + ".phase",
					Message: fmt.Sprintf("unknown phase %q", ep.end.Phase),
					Code:    ErrChainUnknownPhase,
				})
			}
			if ep.end.Field == "" {
				errs = append(errs, ValidationError{
					Field:   prefix + "." + ep.name + ".field",
					Message: "endpoint field is required and must be non-empty",
					Code:    ErrChainEndpointEmpty,
				})
			}
		}

		if srcOK && dstOK && srcIdx >= dstIdx {
			errs = append(errs, ValidationError{
				Field:   prefix,
				Message: fmt.Sprintf("source phase %q must precede destination phase %q in declared order", chain.Source.Phase, chain.Destination.Phase),
				Code:    ErrChainOrderInverted,
			})
		}

		if chain.Verification != "" {
			if err := verify.CheckExpr(chain.Verification); err != nil {
				errs = append(errs, ValidationError{
					Field:   prefix + ".verification",
					Message: err.Error(),
					Code:    ErrInvalidVerification,
				})
			}
		}
	}
	return errs
}
