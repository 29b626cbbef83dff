package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution, everything passed
	ExitFailure      = 1 // validation/gate failure
	ExitCommandError = 2 // command error (bad paths, bad flags, bad documents)
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError for errors that are not ExitErrors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// Renderer writes command results in the configured format. Text
// rendering is per-command; json and yaml marshal the result object.
type Renderer struct {
	Format string
	Writer io.Writer
}

// Emit renders a result object. text is the pre-rendered human form.
func (r *Renderer) Emit(result any, text string) error {
	switch r.Format {
	case "json":
		enc := json.NewEncoder(r.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		enc := yaml.NewEncoder(r.Writer)
		defer enc.Close()
		return enc.Encode(result)
	default:
		_, err := fmt.Fprint(r.Writer, text)
		return err
	}
}

// passMark renders the pass/fail prefix used by text output.
func passMark(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}
