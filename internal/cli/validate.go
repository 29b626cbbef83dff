package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tracegate/tracegate/internal/contract"
)

// validateOutput is the structured result of the validate command.
type validateOutput struct {
	Valid         bool                       `json:"valid"`
	PipelineID    string                     `json:"pipeline_id,omitempty"`
	SchemaVersion string                     `json:"schema_version,omitempty"`
	Phases        int                        `json:"phases"`
	Chains        int                        `json:"chains"`
	Errors        []contract.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command: authoring check for
// a contract document.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <contract.yaml>",
		Short: "Validate a contract document",
		Long:  "Loads a contract document and reports every authoring error found.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer := &Renderer{Format: opts.Format, Writer: cmd.OutOrStdout()}

			c, err := contract.LoadFile(args[0])
			if err != nil {
				var loadErr *contract.LoadError
				if errors.As(err, &loadErr) && len(loadErr.Violations) > 0 {
					out := validateOutput{Valid: false, Errors: loadErr.Violations}
					if renderErr := renderer.Emit(out, renderValidateText(out)); renderErr != nil {
						return renderErr
					}
					return NewExitError(ExitFailure, "contract has authoring errors")
				}
				return WrapExitError(ExitCommandError, "load contract", err)
			}

			out := validateOutput{
				Valid:         true,
				PipelineID:    c.PipelineID,
				SchemaVersion: c.SchemaVersion,
				Phases:        len(c.Phases()),
				Chains:        len(c.Chains),
			}
			return renderer.Emit(out, renderValidateText(out))
		},
	}
}

func renderValidateText(out validateOutput) string {
	var b strings.Builder
	if out.Valid {
		fmt.Fprintf(&b, "OK: contract %q (schema %s) - %d phases, %d chains\n",
			out.PipelineID, out.SchemaVersion, out.Phases, out.Chains)
		return b.String()
	}
	fmt.Fprintf(&b, "FAIL: %d authoring errors\n", len(out.Errors))
	for _, e := range out.Errors {
		fmt.Fprintf(&b, "  %s\n", e.Error())
	}
	return b.String()
}
