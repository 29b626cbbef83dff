package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func minimalPhases() []PhaseContract {
	return []PhaseContract{
		{
			Name: "seed",
			Exit: PhaseExitContract{
				Required: []FieldSpec{{Name: "domain", Severity: SeverityBlocking}},
			},
		},
		{
			Name: "plan",
			Entry: PhaseEntryContract{
				Required: []FieldSpec{{Name: "domain", Severity: SeverityBlocking}},
			},
		},
	}
}

func TestValidate_CleanContract(t *testing.T) {
	c := New("p", "1.0.0", minimalPhases(), []PropagationChainSpec{
		{
			ChainID:     "domain",
			Source:      ChainEndpoint{Phase: "seed", Field: "domain"},
			Destination: ChainEndpoint{Phase: "plan", Field: "domain"},
		},
	})
	assert.Empty(t, Validate(c))
}

func TestValidate_EmptyContractCollectsAll(t *testing.T) {
	c := New("", "", nil, nil)
	errs := Validate(c)
	assert.ElementsMatch(t, []string{ErrPipelineIDEmpty, ErrSchemaVersionEmpty, ErrNoPhases}, codes(errs))
}

func TestValidate_DuplicatePhase(t *testing.T) {
	phases := append(minimalPhases(), PhaseContract{Name: "seed"})
	errs := Validate(New("p", "1.0.0", phases, nil))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicatePhase, errs[0].Code)
	assert.Contains(t, errs[0].Field, "phases[2]")
}

func TestValidate_FieldErrors(t *testing.T) {
	phases := []PhaseContract{{
		Name: "seed",
		Exit: PhaseExitContract{
			Required: []FieldSpec{
				{Name: "", Severity: SeverityBlocking},
				{Name: "domain", Severity: "SEVERE"},
				{Name: "domain", Severity: SeverityBlocking},
			},
		},
	}}
	errs := Validate(New("p", "1.0.0", phases, nil))
	assert.ElementsMatch(t, []string{ErrFieldNameEmpty, ErrInvalidSeverity, ErrDuplicateField}, codes(errs))
}

func TestValidate_ChainErrors(t *testing.T) {
	tests := []struct {
		name  string
		chain PropagationChainSpec
		want  []string
	}{
		{
			name: "empty id and endpoint field",
			chain: PropagationChainSpec{
				Source:      ChainEndpoint{Phase: "seed", Field: ""},
				Destination: ChainEndpoint{Phase: "plan", Field: "domain"},
			},
			want: []string{ErrChainIDEmpty, ErrChainEndpointEmpty},
		},
		{
			name: "unknown phase",
			chain: PropagationChainSpec{
				ChainID:     "c",
				Source:      ChainEndpoint{Phase: "ghost", Field: "domain"},
				Destination: ChainEndpoint{Phase: "plan", Field: "domain"},
			},
			want: []string{ErrChainUnknownPhase},
		},
		{
			name: "inverted order",
			chain: PropagationChainSpec{
				ChainID:     "c",
				Source:      ChainEndpoint{Phase: "plan", Field: "domain"},
				Destination: ChainEndpoint{Phase: "seed", Field: "domain"},
			},
			want: []string{ErrChainOrderInverted},
		},
		{
			name: "self chain is inverted",
			chain: PropagationChainSpec{
				ChainID:     "c",
				Source:      ChainEndpoint{Phase: "seed", Field: "domain"},
				Destination: ChainEndpoint{Phase: "seed", Field: "domain"},
			},
			want: []string{ErrChainOrderInverted},
		},
		{
			name: "bad verification expression",
			chain: PropagationChainSpec{
				ChainID:      "c",
				Source:       ChainEndpoint{Phase: "seed", Field: "domain"},
				Destination:  ChainEndpoint{Phase: "plan", Field: "domain"},
				Verification: "source ==",
			},
			want: []string{ErrInvalidVerification},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("p", "1.0.0", minimalPhases(), []PropagationChainSpec{tt.chain})
			assert.ElementsMatch(t, tt.want, codes(Validate(c)))
		})
	}
}

func TestValidate_DuplicateChainID(t *testing.T) {
	chain := PropagationChainSpec{
		ChainID:     "c",
		Source:      ChainEndpoint{Phase: "seed", Field: "domain"},
		Destination: ChainEndpoint{Phase: "plan", Field: "domain"},
	}
	errs := Validate(New("p", "1.0.0", minimalPhases(), []PropagationChainSpec{chain, chain}))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateChain, errs[0].Code)
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "pipeline_id", Message: "pipeline_id is required", Code: ErrPipelineIDEmpty}
	assert.Equal(t, "[E100] pipeline_id: pipeline_id is required", err.Error())
}

func TestContract_PhaseLookup(t *testing.T) {
	c := New("p", "1.0.0", minimalPhases(), nil)

	phase, ok := c.Phase("plan")
	require.True(t, ok)
	assert.Equal(t, "plan", phase.Name)

	i, ok := c.PhaseIndex("seed")
	require.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = c.Phase("ghost")
	assert.False(t, ok)

	assert.Equal(t, []string{"seed", "plan"}, c.PhaseOrder())
}

func TestPhaseContract_ProducedFields(t *testing.T) {
	p := PhaseContract{
		Name: "seed",
		Exit: PhaseExitContract{
			Required: []FieldSpec{{Name: "domain", Severity: SeverityBlocking}},
			Optional: []FieldSpec{{Name: "seed_notes", Severity: SeverityAdvisory}},
		},
	}
	assert.Equal(t, []string{"domain", "seed_notes"}, p.ProducedFields())
}
