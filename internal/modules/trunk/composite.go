package trunk

// NeutralScore is used when no brain data exists for a fund, or when the
// confidence-weighted normalizer collapses to zero.
const NeutralScore = 50.0

// CompositeCalculator aggregates per-brain scores into one composite score.
//
// Formula: S = sum(alpha_i * S_i * c_i) / sum(alpha_i * c_i)
//
// Weighting by confidence down-ranks low-confidence brains without excluding
// them; dividing by the confidence-weighted normalizer keeps the result on
// the 0-100 scale no matter how many brains report confidence < 1.
type CompositeCalculator struct{}

// NewCompositeCalculator creates a new composite calculator
func NewCompositeCalculator() *CompositeCalculator {
	return &CompositeCalculator{}
}

// Calculate computes the composite score for one fund
func (c *CompositeCalculator) Calculate(
	scores map[string]float64,
	confidences map[string]float64,
	weights map[string]float64,
) float64 {
	if len(scores) == 0 {
		return NeutralScore
	}

	totalWeightedScore := 0.0
	totalWeight := 0.0

	for brainID, score := range scores {
		alpha := weights[brainID]
		confidence := confidenceOrDefault(confidences, brainID)

		totalWeightedScore += alpha * score * confidence
		totalWeight += alpha * confidence
	}

	if totalWeight == 0 {
		return NeutralScore
	}

	composite := totalWeightedScore / totalWeight

	if composite < 0 {
		return 0
	}
	if composite > 100 {
		return 100
	}
	return composite
}
