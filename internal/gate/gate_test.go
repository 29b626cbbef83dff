package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracegate/tracegate/internal/drift"
	"github.com/tracegate/tracegate/internal/health"
	"github.com/tracegate/tracegate/internal/postexec"
)

func checkByName(t *testing.T, result *Result, name string) Check {
	t.Helper()
	for _, c := range result.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s check in result", name)
	return Check{}
}

func TestEvaluate_NoInputsTriviallyPasses(t *testing.T) {
	result := NewDefault().Evaluate(Inputs{})

	assert.True(t, result.Passed)
	assert.Equal(t, 0, result.TotalChecks)
	assert.Empty(t, result.Checks)
}

func TestEvaluate_CompletenessRegression(t *testing.T) {
	gate := NewDefault()

	within := gate.Evaluate(Inputs{
		BaselineReport: &postexec.Report{CompletenessPct: 100},
		CurrentReport:  &postexec.Report{CompletenessPct: 95},
	})
	assert.True(t, checkByName(t, within, CheckCompletenessRegression).Passed)

	beyond := gate.Evaluate(Inputs{
		BaselineReport: &postexec.Report{CompletenessPct: 100},
		CurrentReport:  &postexec.Report{CompletenessPct: 94.9},
	})
	check := checkByName(t, beyond, CheckCompletenessRegression)
	assert.False(t, check.Passed)
	assert.False(t, beyond.Passed)
	assert.Equal(t, 100.0, check.Baseline)
	assert.Equal(t, 94.9, check.Current)
}

func TestEvaluate_CompletenessImprovementPasses(t *testing.T) {
	result := NewDefault().Evaluate(Inputs{
		BaselineReport: &postexec.Report{CompletenessPct: 50},
		CurrentReport:  &postexec.Report{CompletenessPct: 100},
	})
	assert.True(t, checkByName(t, result, CheckCompletenessRegression).Passed)
}

func TestEvaluate_HealthMinimum(t *testing.T) {
	gate := NewDefault()

	at := gate.Evaluate(Inputs{CurrentHealth: &health.Score{Overall: 70}})
	assert.True(t, checkByName(t, at, CheckHealthMinimum).Passed, "70.0 meets the 70.0 floor")

	below := gate.Evaluate(Inputs{CurrentHealth: &health.Score{Overall: 69.9}})
	assert.False(t, checkByName(t, below, CheckHealthMinimum).Passed)
}

func TestEvaluate_HealthRegressionSharesDropBudget(t *testing.T) {
	gate := NewDefault()

	result := gate.Evaluate(Inputs{
		BaselineHealth: &health.Score{Overall: 90},
		CurrentHealth:  &health.Score{Overall: 80},
	})
	check := checkByName(t, result, CheckHealthRegression)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Message, "dropped by 10.0")

	// The minimum check still passes independently.
	assert.True(t, checkByName(t, result, CheckHealthMinimum).Passed)
	assert.False(t, result.Passed)
}

func TestEvaluate_HealthRegressionWithoutBaselineSkipped(t *testing.T) {
	result := NewDefault().Evaluate(Inputs{CurrentHealth: &health.Score{Overall: 80}})
	require.Equal(t, 1, result.TotalChecks)
	assert.Equal(t, CheckHealthMinimum, result.Checks[0].Name)
}

func TestEvaluate_ContractDrift(t *testing.T) {
	breaking := &drift.Report{BreakingCount: 2, HasBreakingChanges: true}

	blocked := NewDefault().Evaluate(Inputs{DriftReport: breaking})
	assert.False(t, checkByName(t, blocked, CheckContractDrift).Passed)

	allowed := New(DefaultThresholds(), true).Evaluate(Inputs{DriftReport: breaking})
	assert.True(t, checkByName(t, allowed, CheckContractDrift).Passed)

	clean := NewDefault().Evaluate(Inputs{DriftReport: &drift.Report{}})
	assert.True(t, checkByName(t, clean, CheckContractDrift).Passed)
}

func TestEvaluate_BlockingFailures(t *testing.T) {
	gate := NewDefault()

	increased := gate.Evaluate(Inputs{
		BaselineReport: &postexec.Report{ChainsBroken: 1},
		CurrentReport:  &postexec.Report{ChainsBroken: 2},
	})
	check := checkByName(t, increased, CheckBlockingFailures)
	assert.False(t, check.Passed)
	assert.Equal(t, 1.0, check.Baseline)
	assert.Equal(t, 2.0, check.Current)

	steady := gate.Evaluate(Inputs{
		BaselineReport: &postexec.Report{ChainsBroken: 2},
		CurrentReport:  &postexec.Report{ChainsBroken: 2},
	})
	assert.True(t, checkByName(t, steady, CheckBlockingFailures).Passed)
}

func TestEvaluate_BlockingFailuresBaselineDefaultsToZero(t *testing.T) {
	result := NewDefault().Evaluate(Inputs{
		CurrentReport: &postexec.Report{ChainsBroken: 1},
	})
	check := checkByName(t, result, CheckBlockingFailures)
	assert.False(t, check.Passed)
	assert.Equal(t, 0.0, check.Baseline)
}

func TestEvaluate_CustomThresholds(t *testing.T) {
	gate := New(Thresholds{
		MinHealthScore:             50,
		MaxCompletenessDrop:        20,
		MaxBlockingFailureIncrease: 1,
	}, false)

	result := gate.Evaluate(Inputs{
		BaselineReport: &postexec.Report{CompletenessPct: 100, ChainsBroken: 0},
		CurrentReport:  &postexec.Report{CompletenessPct: 85, ChainsBroken: 1},
		BaselineHealth: &health.Score{Overall: 75},
		CurrentHealth:  &health.Score{Overall: 60},
	})
	assert.True(t, result.Passed)
	assert.Equal(t, 4, result.TotalChecks)
}

func TestEvaluate_CountsAddUp(t *testing.T) {
	result := NewDefault().Evaluate(Inputs{
		BaselineReport: &postexec.Report{CompletenessPct: 100},
		CurrentReport:  &postexec.Report{CompletenessPct: 40, ChainsBroken: 1},
		CurrentHealth:  &health.Score{Overall: 55},
		DriftReport:    &drift.Report{},
	})

	assert.Equal(t, 4, result.TotalChecks)
	assert.Equal(t, result.TotalChecks, result.PassedChecks+result.FailedChecks)
	assert.Equal(t, 3, result.FailedChecks)
	assert.False(t, result.Passed)
}
