// Package testutil provides shared contract and context fixtures: a
// standard seed -> plan -> implement -> verify pipeline that exercises
// every severity, a default, enrichment fields, and chains.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tracegate/tracegate/internal/contract"
	"github.com/tracegate/tracegate/internal/ctxval"
)

// PipelineID is the fixture contract's pipeline id.
const PipelineID = "feature-pipeline"

// Contract returns the standard four-phase fixture contract.
// Shape:
//
//	seed:      exit  required domain, seed_output (BLOCKING); optional seed_notes
//	plan:      entry required domain (BLOCKING)
//	           enrichment repo_url (WARNING), reviewer (ADVISORY)
//	           exit  required plan_output (BLOCKING)
//	implement: entry required plan_output (BLOCKING), style (WARNING, default "standard")
//	           exit  required impl_output (BLOCKING)
//	verify:    entry required impl_output (BLOCKING)
//	           exit  required verdict (BLOCKING)
//
// Chains: seed.domain -> plan.domain, plan.plan_output -> verify.plan_output
// (the second with a verification expression).
func Contract(t *testing.T) *contract.ContextContract {
	t.Helper()
	c := contract.New(PipelineID, "1.2.0",
		[]contract.PhaseContract{
			{
				Name: "seed",
				Exit: contract.PhaseExitContract{
					Required: []contract.FieldSpec{
						{Name: "domain", Severity: contract.SeverityBlocking},
						{Name: "seed_output", Severity: contract.SeverityBlocking},
					},
					Optional: []contract.FieldSpec{
						{Name: "seed_notes", Severity: contract.SeverityAdvisory},
					},
				},
			},
			{
				Name: "plan",
				Entry: contract.PhaseEntryContract{
					Required: []contract.FieldSpec{
						{Name: "domain", Severity: contract.SeverityBlocking},
					},
					Enrichment: []contract.FieldSpec{
						{Name: "repo_url", Severity: contract.SeverityWarning},
						{Name: "reviewer", Severity: contract.SeverityAdvisory},
					},
				},
				Exit: contract.PhaseExitContract{
					Required: []contract.FieldSpec{
						{Name: "plan_output", Severity: contract.SeverityBlocking},
					},
				},
			},
			{
				Name: "implement",
				Entry: contract.PhaseEntryContract{
					Required: []contract.FieldSpec{
						{Name: "plan_output", Severity: contract.SeverityBlocking},
						{Name: "style", Severity: contract.SeverityWarning, Default: ctxval.String("standard")},
					},
				},
				Exit: contract.PhaseExitContract{
					Required: []contract.FieldSpec{
						{Name: "impl_output", Severity: contract.SeverityBlocking},
					},
				},
			},
			{
				Name: "verify",
				Entry: contract.PhaseEntryContract{
					Required: []contract.FieldSpec{
						{Name: "impl_output", Severity: contract.SeverityBlocking},
					},
				},
				Exit: contract.PhaseExitContract{
					Required: []contract.FieldSpec{
						{Name: "verdict", Severity: contract.SeverityBlocking},
					},
				},
			},
		},
		[]contract.PropagationChainSpec{
			{
				ChainID:     "domain-propagation",
				Source:      contract.ChainEndpoint{Phase: "seed", Field: "domain"},
				Destination: contract.ChainEndpoint{Phase: "plan", Field: "domain"},
			},
			{
				ChainID:      "plan-to-verify",
				Source:       contract.ChainEndpoint{Phase: "plan", Field: "plan_output"},
				Destination:  contract.ChainEndpoint{Phase: "verify", Field: "plan_output"},
				Verification: "has_dest && source == dest",
			},
		},
	)
	require.Empty(t, contract.Validate(c), "fixture contract must be authoring-clean")
	return c
}

// SeededContext returns an initial context that passes pre-flight for
// the fixture contract.
func SeededContext(t *testing.T) *ctxval.Context {
	t.Helper()
	ctx, err := ctxval.FromMap(map[string]any{
		"repo_url": "https://example.test/repo.git",
		"reviewer": "casey",
	})
	require.NoError(t, err)
	return ctx
}

// CompletedContext returns a final context for a fully successful run
// of the fixture pipeline.
func CompletedContext(t *testing.T) *ctxval.Context {
	t.Helper()
	ctx, err := ctxval.FromMap(map[string]any{
		"domain":      "web_app",
		"seed_output": "seeded",
		"repo_url":    "https://example.test/repo.git",
		"reviewer":    "casey",
		"plan_output": "plan-v1",
		"style":       "standard",
		"impl_output": "impl-v1",
		"verdict":     "pass",
	})
	require.NoError(t, err)
	return ctx
}
