// Package health folds the outputs of the pre-flight, runtime, and
// post-execution layers into one weighted 0-100 score. Inputs the
// caller does not supply score perfect: the scorer measures what was
// checked, it does not penalize the host for skipping a layer.
package health

import (
	"math"

	"github.com/tracegate/tracegate/internal/guard"
	"github.com/tracegate/tracegate/internal/postexec"
	"github.com/tracegate/tracegate/internal/preflight"
)

// discrepancyPenaltyStep is how many points each runtime discrepancy
// costs, capped at 100.
const discrepancyPenaltyStep = 25

// Weights distributes the overall score across components.
type Weights struct {
	Completeness float64 `json:"completeness"`
	Boundary     float64 `json:"boundary"`
	Preflight    float64 `json:"preflight"`
	Discrepancy  float64 `json:"discrepancy"`
}

// DefaultWeights returns the standard 0.4/0.3/0.2/0.1 split.
func DefaultWeights() Weights {
	return Weights{
		Completeness: 0.4,
		Boundary:     0.3,
		Preflight:    0.2,
		Discrepancy:  0.1,
	}
}

// Score is the composite health verdict. Every component is in [0,100].
type Score struct {
	Overall float64 `json:"overall"`

	Completeness float64 `json:"completeness_score"`
	Boundary     float64 `json:"boundary_score"`
	Preflight    float64 `json:"preflight_score"`

	// DiscrepancyPenalty is the deduction taken for runtime
	// discrepancies before weighting (0 = clean).
	DiscrepancyPenalty float64 `json:"discrepancy_penalty"`
}

// Scorer computes health scores. Stateless; safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// NewDefaultScorer creates a scorer with DefaultWeights.
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultWeights())
}

// Compute scores a run. Any input may be nil:
//
//   - no post-exec report: completeness 100, no discrepancy penalty
//   - no runtime summary: boundary 100
//   - no pre-flight result: preflight 100
//
// All-nil inputs therefore score a perfect 100.
func (s *Scorer) Compute(pf *preflight.Result, runtime *guard.WorkflowRunSummary, post *postexec.Report) *Score {
	score := &Score{
		Completeness: 100,
		Boundary:     100,
		Preflight:    100,
	}

	if post != nil {
		score.Completeness = clamp(post.CompletenessPct)
		score.DiscrepancyPenalty = math.Min(100, float64(len(post.RuntimeDiscrepancies)*discrepancyPenaltyStep))
	}
	if runtime != nil && runtime.TotalPhases > 0 {
		score.Boundary = clamp(float64(runtime.PassedPhases) / float64(runtime.TotalPhases) * 100)
	}
	if pf != nil && !pf.Passed {
		score.Preflight = 0
	}

	overall := score.Completeness*s.weights.Completeness +
		score.Boundary*s.weights.Boundary +
		score.Preflight*s.weights.Preflight +
		(100-score.DiscrepancyPenalty)*s.weights.Discrepancy
	score.Overall = math.Round(clamp(overall)*10) / 10
	return score
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
