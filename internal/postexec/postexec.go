// Package postexec re-checks a finished run's final context against the
// whole contract: propagation chain integrity end-to-end, final-exit
// completeness, and a cross-reference against the runtime guard's
// summary to flag discrepancies between what the boundaries saw and
// what the data says now.
//
// Validation here is pure: the final context is read, never written,
// and validating the same inputs twice yields identical reports.
package postexec

import (
	"fmt"
	"math"

	"github.com/tracegate/tracegate/internal/contract"
	"github.com/tracegate/tracegate/internal/ctxval"
	"github.com/tracegate/tracegate/internal/guard"
	"github.com/tracegate/tracegate/internal/verify"
)

// ChainStatus classifies one propagation chain's end state.
type ChainStatus string

const (
	// ChainIntact: source and destination both carry real values (and
	// the verification expression, if any, holds).
	ChainIntact ChainStatus = "INTACT"

	// ChainDegraded: the source survived but the destination is absent
	// or empty. Degraded chains never fail the report.
	ChainDegraded ChainStatus = "DEGRADED"

	// ChainBroken: the source is gone, or verification failed.
	ChainBroken ChainStatus = "BROKEN"
)

// ChainResult is the outcome of checking one chain.
type ChainResult struct {
	ChainID string      `json:"chain_id"`
	Status  ChainStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Discrepancy types emitted by the runtime cross-reference.
const (
	// DiscrepancyLateCorruption: runtime checks passed for a phase but
	// a chain touching it ended up broken.
	DiscrepancyLateCorruption = "late_corruption"

	// DiscrepancyLateHealing: runtime flagged a phase but every chain
	// touching it survived.
	DiscrepancyLateHealing = "late_healing"
)

// RuntimeDiscrepancy records a disagreement between runtime boundary
// results and post-execution chain state.
type RuntimeDiscrepancy struct {
	Phase   string `json:"phase"`
	Type    string `json:"discrepancy_type"`
	Message string `json:"message"`
}

// Report is the post-execution verdict.
type Report struct {
	Passed bool `json:"passed"`

	ChainsTotal    int           `json:"chains_total"`
	ChainsIntact   int           `json:"chains_intact"`
	ChainsDegraded int           `json:"chains_degraded"`
	ChainsBroken   int           `json:"chains_broken"`
	Chains         []ChainResult `json:"chains,omitempty"`

	// CompletenessPct is chains_intact / max(chains_total, 1) * 100,
	// rounded to one decimal. With zero chains this is 0.0, not 100.0;
	// downstream consumers rely on the quirk (a contract that declares
	// no chains scores neutral by omitting this report, not by a fake
	// perfect completeness).
	CompletenessPct float64 `json:"completeness_pct"`

	FinalExit *contract.ValidationResult `json:"final_exit_result,omitempty"`

	RuntimeDiscrepancies []RuntimeDiscrepancy `json:"runtime_discrepancies,omitempty"`
}

// Validator runs post-execution validation. Stateless; safe for
// concurrent use.
type Validator struct{}

// NewValidator creates a post-execution validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate re-checks the final context against the contract.
// order may be nil (final-exit validation is skipped when empty, or
// when the last phase in the order is not declared). runtime may be nil
// (cross-referencing is skipped).
//
// Passed = no BROKEN chain AND final-exit passed (when checked).
func (v *Validator) Validate(c *contract.ContextContract, final *ctxval.Context, order []string, runtime *guard.WorkflowRunSummary) *Report {
	report := v.ValidateChains(c, final)

	if len(order) > 0 {
		last := order[len(order)-1]
		if pc, ok := c.Phase(last); ok {
			report.FinalExit = contract.CheckFields(last, contract.DirectionExit, pc.Exit.Required, final,
				contract.CheckOptions{ApplyDefaults: false})
			if !report.FinalExit.Passed {
				report.Passed = false
			}
		}
	}

	if runtime != nil {
		report.RuntimeDiscrepancies = crossReference(c, report, runtime)
	}
	return report
}

// ValidateChains runs only the chain-integrity check.
func (v *Validator) ValidateChains(c *contract.ContextContract, final *ctxval.Context) *Report {
	report := &Report{Passed: true}

	for _, chain := range c.Chains {
		res := checkChain(chain, final)
		report.Chains = append(report.Chains, res)
		report.ChainsTotal++
		switch res.Status {
		case ChainIntact:
			report.ChainsIntact++
		case ChainDegraded:
			report.ChainsDegraded++
		case ChainBroken:
			report.ChainsBroken++
			report.Passed = false
		}
	}

	pct := float64(report.ChainsIntact) / math.Max(float64(report.ChainsTotal), 1) * 100
	report.CompletenessPct = math.Round(pct*10) / 10
	return report
}

// checkChain classifies one chain against the final context.
func checkChain(chain contract.PropagationChainSpec, final *ctxval.Context) ChainResult {
	res := ChainResult{ChainID: chain.ChainID}

	srcVal, srcOK := final.Resolve(chain.Source.Field)
	if _, isNull := srcVal.(ctxval.Null); !srcOK || isNull {
		res.Status = ChainBroken
		res.Message = fmt.Sprintf("source %s.%s absent from final context", chain.Source.Phase, chain.Source.Field)
		return res
	}

	dstVal, dstOK := final.Resolve(chain.Destination.Field)

	if chain.Verification != "" {
		checker, err := verify.Compile(chain.Verification)
		if err != nil {
			// Load-time validation rejects bad expressions; a contract
			// built in code can still carry one.
			res.Status = ChainBroken
			res.Message = err.Error()
			return res
		}
		ok, err := checker.Eval(srcVal, srcOK, dstVal, dstOK)
		if err != nil {
			res.Status = ChainBroken
			res.Message = err.Error()
			return res
		}
		if !ok {
			res.Status = ChainBroken
			res.Message = fmt.Sprintf("verification %q failed (source=%s, dest=%s)",
				chain.Verification, ctxval.Format(srcVal), ctxval.Format(dstVal))
			return res
		}
		res.Status = ChainIntact
		return res
	}

	if !dstOK || ctxval.IsPlaceholder(dstVal) {
		res.Status = ChainDegraded
		res.Message = fmt.Sprintf("destination %s.%s absent or empty", chain.Destination.Phase, chain.Destination.Field)
		return res
	}

	res.Status = ChainIntact
	return res
}

// crossReference compares broken chains against runtime records.
// Phases the runtime summary never tracked are skipped.
func crossReference(c *contract.ContextContract, report *Report, runtime *guard.WorkflowRunSummary) []RuntimeDiscrepancy {
	var out []RuntimeDiscrepancy

	brokenByID := make(map[string]bool)
	for _, res := range report.Chains {
		if res.Status == ChainBroken {
			brokenByID[res.ChainID] = true
		}
	}

	// Broken chains whose phases passed at runtime: the boundary saw
	// good data that later went bad.
	for _, chain := range c.Chains {
		if !brokenByID[chain.ChainID] {
			continue
		}
		for _, phase := range chainPhases(chain) {
			rec, tracked := runtime.Record(phase)
			if !tracked || !rec.Passed() {
				continue
			}
			out = append(out, RuntimeDiscrepancy{
				Phase: phase,
				Type:  DiscrepancyLateCorruption,
				Message: fmt.Sprintf("phase %q passed runtime checks but chain %q is broken in the final context",
					phase, chain.ChainID),
			})
		}
	}

	// Failed runtime phases whose chains all survived: the data healed
	// downstream of the flagged boundary.
	for _, rec := range runtime.Phases {
		if rec.Passed() {
			continue
		}
		anyBroken := false
		for _, chain := range c.Chains {
			for _, phase := range chainPhases(chain) {
				if phase == rec.Phase && brokenByID[chain.ChainID] {
					anyBroken = true
				}
			}
		}
		if anyBroken {
			continue
		}
		out = append(out, RuntimeDiscrepancy{
			Phase: rec.Phase,
			Type:  DiscrepancyLateHealing,
			Message: fmt.Sprintf("phase %q failed runtime checks but no chain touching it is broken in the final context",
				rec.Phase),
		})
	}
	return out
}

// chainPhases returns a chain's distinct endpoint phases.
func chainPhases(chain contract.PropagationChainSpec) []string {
	if chain.Source.Phase == chain.Destination.Phase {
		return []string{chain.Source.Phase}
	}
	return []string{chain.Source.Phase, chain.Destination.Phase}
}
