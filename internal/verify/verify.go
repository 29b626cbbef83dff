// Package verify evaluates propagation-chain verification expressions.
//
// Expressions run in a deliberately tiny CEL environment exposing four
// variables and nothing else:
//
//	source     - the resolved source value (dyn; null when absent)
//	dest       - the resolved destination value (dyn; null when absent)
//	has_source - whether the source field resolved
//	has_dest   - whether the destination field resolved
//
// No macros, no custom functions, no host bindings. CEL is not
// Turing-complete and cannot perform I/O, which keeps contract authors
// inside a closed comparison grammar ("source == dest",
// "has_dest && dest != ''") without this package growing an evaluator
// of its own.
package verify

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/tracegate/tracegate/internal/ctxval"
)

// Checker is a compiled verification expression, safe for concurrent use.
type Checker struct {
	expr string
	prg  cel.Program
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.ClearMacros(),
		cel.Variable("source", cel.DynType),
		cel.Variable("dest", cel.DynType),
		cel.Variable("has_source", cel.BoolType),
		cel.Variable("has_dest", cel.BoolType),
	)
}

// Compile validates and compiles a verification expression.
// Returns an error for syntax errors, references to unknown variables,
// and expressions that do not produce a bool.
func Compile(expr string) (*Checker, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("verification env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile verification %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("verification %q must produce a bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program verification %q: %w", expr, err)
	}
	return &Checker{expr: expr, prg: prg}, nil
}

// CheckExpr reports whether an expression compiles, without retaining
// the program. Used by contract authoring validation.
func CheckExpr(expr string) error {
	_, err := Compile(expr)
	return err
}

// Expr returns the source expression.
func (c *Checker) Expr() string {
	return c.expr
}

// Eval runs the expression against resolved chain endpoint values.
// Absent endpoints are passed as null with their has_* flag false.
func (c *Checker) Eval(source ctxval.Value, hasSource bool, dest ctxval.Value, hasDest bool) (bool, error) {
	input := map[string]any{
		"source":     ctxval.ToNative(source),
		"dest":       ctxval.ToNative(dest),
		"has_source": hasSource,
		"has_dest":   hasDest,
	}
	out, _, err := c.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval verification %q: %w", c.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("verification %q produced %T, want bool", c.expr, out.Value())
	}
	return b, nil
}
