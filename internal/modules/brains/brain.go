package brains

import (
	"github.com/aristath/fund-trader/internal/domain"
	"github.com/aristath/fund-trader/internal/modules/trunk"
)

// Brain is the single capability every scorer must provide: produce a
// standardized BrainOutput for a fund universe. The trunk engine consumes
// only brain id, fund id, score and confidence from the output; a brain is
// responsible for clamping its own scores to [0,100] and confidences to
// [0,1] before emitting them.
type Brain interface {
	// Registration describes the brain for the trunk registry
	Registration() trunk.BrainRegistration

	// AnalyzeFunds scores the whole fund universe in one pass
	AnalyzeFunds(funds []domain.Fund) trunk.BrainOutput
}

// clampScore bounds a raw score to the 0-100 contract
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// clampConfidence bounds a raw confidence to the 0-1 contract
func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
