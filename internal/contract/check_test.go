package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracegate/tracegate/internal/ctxval"
)

func ctxOf(t *testing.T, m map[string]any) *ctxval.Context {
	t.Helper()
	ctx, err := ctxval.FromMap(m)
	require.NoError(t, err)
	return ctx
}

func TestCheckFields_AllPresent(t *testing.T) {
	specs := []FieldSpec{
		{Name: "domain", Severity: SeverityBlocking},
		{Name: "repo_url", Severity: SeverityWarning},
	}
	ctx := ctxOf(t, map[string]any{"domain": "web_app", "repo_url": "https://example.test"})

	result := CheckFields("plan", DirectionEntry, specs, ctx, CheckOptions{})

	assert.True(t, result.Passed)
	assert.Equal(t, StatusPropagated, result.PropagationStatus)
	assert.Empty(t, result.BlockingFailures)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Fields, 2)
	for _, fr := range result.Fields {
		assert.True(t, fr.Passed, fr.Name)
		assert.True(t, fr.Present, fr.Name)
	}
}

func TestCheckFields_BlockingAbsent(t *testing.T) {
	specs := []FieldSpec{{Name: "domain", Severity: SeverityBlocking}}
	result := CheckFields("plan", DirectionEntry, specs, ctxval.NewContext(), CheckOptions{})

	assert.False(t, result.Passed)
	assert.Equal(t, StatusFailed, result.PropagationStatus)
	assert.Equal(t, []string{"domain"}, result.BlockingFailures)
}

func TestCheckFields_PlaceholderFails(t *testing.T) {
	tests := []struct {
		name string
		val  any
	}{
		{"null", nil},
		{"empty string", ""},
		{"unknown literal", "unknown"},
		{"uppercase unknown literal", "UNKNOWN"},
		{"empty list", []any{}},
		{"empty object", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ctxOf(t, map[string]any{"domain": tt.val})
			result := CheckFields("plan", DirectionEntry,
				[]FieldSpec{{Name: "domain", Severity: SeverityBlocking}}, ctx, CheckOptions{})

			assert.False(t, result.Passed)
			require.Len(t, result.Fields, 1)
			assert.True(t, result.Fields[0].Present, "placeholder fields are present, just not real")
			assert.Contains(t, result.Fields[0].Message, "placeholder")
		})
	}
}

func TestCheckFields_WarningDoesNotFail(t *testing.T) {
	specs := []FieldSpec{{Name: "repo_url", Severity: SeverityWarning}}
	result := CheckFields("plan", DirectionEntry, specs, ctxval.NewContext(), CheckOptions{})

	assert.True(t, result.Passed)
	assert.Equal(t, StatusPartial, result.PropagationStatus)
	assert.Equal(t, []string{"repo_url"}, result.Warnings)
	assert.Empty(t, result.BlockingFailures)
}

func TestCheckFields_AdvisoryOnlyInFieldList(t *testing.T) {
	specs := []FieldSpec{{Name: "reviewer", Severity: SeverityAdvisory}}
	result := CheckFields("plan", DirectionEntry, specs, ctxval.NewContext(), CheckOptions{})

	assert.True(t, result.Passed)
	assert.Equal(t, StatusPropagated, result.PropagationStatus)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Fields, 1)
	assert.False(t, result.Fields[0].Passed)
}

func TestCheckFields_DefaultApplied(t *testing.T) {
	specs := []FieldSpec{{Name: "style", Severity: SeverityWarning, Default: ctxval.String("standard")}}
	ctx := ctxval.NewContext()

	result := CheckFields("implement", DirectionEntry, specs, ctx, CheckOptions{ApplyDefaults: true})

	assert.True(t, result.Passed)
	assert.Equal(t, StatusDefaulted, result.PropagationStatus)
	assert.Equal(t, 1, result.DefaultsApplied())
	v, ok := ctx.Resolve("style")
	require.True(t, ok, "default written back into the context")
	assert.Equal(t, ctxval.String("standard"), v)
}

func TestCheckFields_DefaultWithoutApplyLeavesContextAlone(t *testing.T) {
	specs := []FieldSpec{{Name: "style", Severity: SeverityWarning, Default: ctxval.String("standard")}}
	ctx := ctxval.NewContext()

	result := CheckFields("implement", DirectionEntry, specs, ctx, CheckOptions{})

	assert.True(t, result.Passed)
	assert.Equal(t, StatusDefaulted, result.PropagationStatus)
	_, ok := ctx.Resolve("style")
	assert.False(t, ok, "read-only check must not mutate the context")
}

func TestCheckFields_PlaceholderIgnoresDefault(t *testing.T) {
	// A default fills absence only. A placeholder is a present value
	// and fails regardless of a declared default.
	specs := []FieldSpec{{Name: "style", Severity: SeverityBlocking, Default: ctxval.String("standard")}}
	ctx := ctxOf(t, map[string]any{"style": "unknown"})

	result := CheckFields("implement", DirectionEntry, specs, ctx, CheckOptions{ApplyDefaults: true})

	assert.False(t, result.Passed)
	v, _ := ctx.Resolve("style")
	assert.Equal(t, ctxval.String("unknown"), v, "placeholder value is left in place")
}

func TestCheckFields_StatusIsWorstAcrossFields(t *testing.T) {
	specs := []FieldSpec{
		{Name: "style", Severity: SeverityWarning, Default: ctxval.String("standard")},
		{Name: "repo_url", Severity: SeverityWarning},
		{Name: "domain", Severity: SeverityBlocking},
	}
	result := CheckFields("plan", DirectionEntry, specs, ctxval.NewContext(), CheckOptions{})

	assert.Equal(t, StatusFailed, result.PropagationStatus)
	assert.False(t, result.Passed)
}

func TestWorstStatus(t *testing.T) {
	assert.Equal(t, StatusFailed, WorstStatus(StatusFailed, StatusPropagated))
	assert.Equal(t, StatusFailed, WorstStatus(StatusDefaulted, StatusFailed))
	assert.Equal(t, StatusPartial, WorstStatus(StatusPartial, StatusDefaulted))
	assert.Equal(t, StatusPropagated, WorstStatus(StatusPropagated, StatusPropagated))
}

func TestPhaseExecutionRecord_Derived(t *testing.T) {
	entry := &ValidationResult{
		Passed: true, Phase: "plan", Direction: DirectionEntry,
		PropagationStatus: StatusDefaulted,
		Fields: []FieldResult{
			{Name: "style", Passed: true, Defaulted: true},
			{Name: "domain", Passed: true, Present: true},
		},
	}
	exit := &ValidationResult{
		Passed: false, Phase: "plan", Direction: DirectionExit,
		PropagationStatus: StatusFailed,
		Fields:            []FieldResult{{Name: "plan_output"}},
		BlockingFailures:  []string{"plan_output"},
	}
	rec := PhaseExecutionRecord{Phase: "plan", Entry: entry, Exit: exit}

	assert.False(t, rec.Passed())
	assert.Equal(t, StatusFailed, rec.PropagationStatus())
	assert.Equal(t, 3, rec.FieldsChecked())
	assert.Equal(t, 1, rec.BlockingFailures())
	assert.Equal(t, 1, rec.DefaultsApplied())
}

func TestPhaseExecutionRecord_EmptyDefaultsToPropagated(t *testing.T) {
	rec := PhaseExecutionRecord{Phase: "seed"}
	assert.True(t, rec.Passed())
	assert.Equal(t, StatusPropagated, rec.PropagationStatus())
	assert.Equal(t, 0, rec.FieldsChecked())
}
