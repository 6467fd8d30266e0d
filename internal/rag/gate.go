package rag

import "github.com/askbook/askbook/internal/model"

const (
	ReasonNoCandidates   = "no_candidates"
	ReasonBelowThreshold = "below_threshold"
)

// GateDecision is the pass/fail verdict on whether retrieved content is
// similar enough to attempt a grounded answer.
type GateDecision struct {
	Passed         bool
	Reason         string
	BestSimilarity float64
}

// EvaluateGate passes a result set iff it is non-empty and its best
// similarity reaches the threshold. The boundary is inclusive.
func EvaluateGate(result model.RetrievalResult, threshold float64) GateDecision {
	if result.Empty() {
		return GateDecision{Passed: false, Reason: ReasonNoCandidates}
	}
	best := result.BestSimilarity()
	if best < threshold {
		return GateDecision{Passed: false, Reason: ReasonBelowThreshold, BestSimilarity: best}
	}
	return GateDecision{Passed: true, BestSimilarity: best}
}
