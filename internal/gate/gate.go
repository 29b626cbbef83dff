// Package gate decides whether a run may ship, comparing its reports
// and health against a baseline under configured thresholds. Gate
// failures are never errors: the caller gets a Result with one named
// check per input combination actually supplied and acts on it.
package gate

import (
	"fmt"

	"github.com/tracegate/tracegate/internal/drift"
	"github.com/tracegate/tracegate/internal/health"
	"github.com/tracegate/tracegate/internal/postexec"
)

// Check names used in Result.Checks.
const (
	CheckCompletenessRegression = "completeness_regression"
	CheckHealthMinimum          = "health_minimum"
	CheckHealthRegression       = "health_regression"
	CheckContractDrift          = "contract_drift"
	CheckBlockingFailures       = "blocking_failures"
)

// Thresholds configures the gate.
type Thresholds struct {
	// MinHealthScore is the floor for the current run's overall health.
	MinHealthScore float64 `json:"min_health_score"`

	// MaxCompletenessDrop is the largest tolerated drop in completeness
	// percentage points against the baseline. The same knob bounds the
	// tolerated drop in health points; the two regressions are gated by
	// one budget deliberately.
	MaxCompletenessDrop float64 `json:"max_completeness_drop"`

	// MaxBlockingFailureIncrease is the largest tolerated increase in
	// broken chains against the baseline.
	MaxBlockingFailureIncrease int `json:"max_blocking_failure_increase"`
}

// DefaultThresholds returns the standard gate configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinHealthScore:             70.0,
		MaxCompletenessDrop:        5.0,
		MaxBlockingFailureIncrease: 0,
	}
}

// Check is one named gate check.
type Check struct {
	Name     string  `json:"name"`
	Passed   bool    `json:"passed"`
	Baseline float64 `json:"baseline"`
	Current  float64 `json:"current"`
	Message  string  `json:"message"`
}

// Result is the aggregate gate verdict. With no inputs the gate
// trivially passes with zero checks.
type Result struct {
	Passed       bool    `json:"passed"`
	Checks       []Check `json:"checks,omitempty"`
	TotalChecks  int     `json:"total_checks"`
	PassedChecks int     `json:"passed_checks"`
	FailedChecks int     `json:"failed_checks"`
}

func (r *Result) add(c Check) {
	r.Checks = append(r.Checks, c)
	r.TotalChecks++
	if c.Passed {
		r.PassedChecks++
	} else {
		r.FailedChecks++
		r.Passed = false
	}
}

// Gate evaluates regression checks. Stateless; safe for concurrent use.
type Gate struct {
	thresholds Thresholds

	// AllowBreakingDrift skips failing the contract_drift check on
	// breaking changes (release trains that version contracts and
	// migrate callers in lockstep).
	allowBreakingDrift bool
}

// New creates a gate with the given thresholds.
func New(t Thresholds, allowBreakingDrift bool) *Gate {
	return &Gate{thresholds: t, allowBreakingDrift: allowBreakingDrift}
}

// NewDefault creates a gate with DefaultThresholds and breaking drift
// disallowed.
func NewDefault() *Gate {
	return New(DefaultThresholds(), false)
}

// Inputs carries whatever the caller has for this gating decision.
// Every field is optional; each supplied combination contributes one
// named check.
type Inputs struct {
	BaselineReport *postexec.Report
	CurrentReport  *postexec.Report
	BaselineHealth *health.Score
	CurrentHealth  *health.Score
	DriftReport    *drift.Report
}

// Evaluate runs every check whose inputs are present.
func (g *Gate) Evaluate(in Inputs) *Result {
	result := &Result{Passed: true}

	if in.BaselineReport != nil && in.CurrentReport != nil {
		drop := in.BaselineReport.CompletenessPct - in.CurrentReport.CompletenessPct
		result.add(Check{
			Name:     CheckCompletenessRegression,
			Passed:   drop <= g.thresholds.MaxCompletenessDrop,
			Baseline: in.BaselineReport.CompletenessPct,
			Current:  in.CurrentReport.CompletenessPct,
			Message: fmt.Sprintf("completeness %.1f%% -> %.1f%% (max drop %.1f)",
				in.BaselineReport.CompletenessPct, in.CurrentReport.CompletenessPct, g.thresholds.MaxCompletenessDrop),
		})
	}

	if in.CurrentHealth != nil {
		result.add(Check{
			Name:     CheckHealthMinimum,
			Passed:   in.CurrentHealth.Overall >= g.thresholds.MinHealthScore,
			Current:  in.CurrentHealth.Overall,
			Baseline: g.thresholds.MinHealthScore,
			Message: fmt.Sprintf("health %.1f against minimum %.1f",
				in.CurrentHealth.Overall, g.thresholds.MinHealthScore),
		})
	}

	if in.BaselineHealth != nil && in.CurrentHealth != nil {
		drop := in.BaselineHealth.Overall - in.CurrentHealth.Overall
		result.add(Check{
			Name:     CheckHealthRegression,
			Passed:   drop <= g.thresholds.MaxCompletenessDrop,
			Baseline: in.BaselineHealth.Overall,
			Current:  in.CurrentHealth.Overall,
			Message: fmt.Sprintf("health dropped by %.1f (max drop %.1f)",
				drop, g.thresholds.MaxCompletenessDrop),
		})
	}

	if in.DriftReport != nil {
		passed := in.DriftReport.BreakingCount == 0 || g.allowBreakingDrift
		result.add(Check{
			Name:     CheckContractDrift,
			Passed:   passed,
			Current:  float64(in.DriftReport.BreakingCount),
			Message: fmt.Sprintf("%d breaking contract changes (allow_breaking_drift=%t)",
				in.DriftReport.BreakingCount, g.allowBreakingDrift),
		})
	}

	if in.CurrentReport != nil {
		baselineBroken := 0
		if in.BaselineReport != nil {
			baselineBroken = in.BaselineReport.ChainsBroken
		}
		increase := in.CurrentReport.ChainsBroken - baselineBroken
		result.add(Check{
			Name:     CheckBlockingFailures,
			Passed:   increase <= g.thresholds.MaxBlockingFailureIncrease,
			Baseline: float64(baselineBroken),
			Current:  float64(in.CurrentReport.ChainsBroken),
			Message: fmt.Sprintf("broken chains %d -> %d (max increase %d)",
				baselineBroken, in.CurrentReport.ChainsBroken, g.thresholds.MaxBlockingFailureIncrease),
		})
	}

	return result
}
