package trunk

import (
	"math"
	"sort"
	"time"

	"github.com/aristath/fund-trader/pkg/formulas"
)

// Consensus classification thresholds (standard deviation of brain scores)
const (
	SigmaStrong   = 10.0
	SigmaModerate = 20.0
	SigmaWeak     = 30.0
)

// Contradiction detection defaults
const (
	ContradictionDiffThreshold = 30.0
	ContradictionMinConfidence = 0.8
)

// ConsensusAnalyzer classifies agreement between brains for a single fund and
// detects pairwise contradictions.
type ConsensusAnalyzer struct{}

// NewConsensusAnalyzer creates a new consensus analyzer
func NewConsensusAnalyzer() *ConsensusAnalyzer {
	return &ConsensusAnalyzer{}
}

// ComputeConsensus returns the sample standard deviation of the scores and
// its classification. Fewer than two scores is trivially strong consensus.
func (a *ConsensusAnalyzer) ComputeConsensus(scores map[string]float64) (float64, ConsensusLevel) {
	if len(scores) < 2 {
		return 0, ConsensusStrong
	}

	values := make([]float64, 0, len(scores))
	for _, s := range scores {
		values = append(values, s)
	}

	sigma := formulas.StdDev(values)

	switch {
	case sigma < SigmaStrong:
		return sigma, ConsensusStrong
	case sigma < SigmaModerate:
		return sigma, ConsensusModerate
	case sigma < SigmaWeak:
		return sigma, ConsensusWeak
	default:
		return sigma, ConsensusDivergence
	}
}

// DetectContradictions flags every unordered pair of brains whose scores
// differ by more than diffThreshold while both report confidence above
// confThreshold. Quadratic in the number of brains, which stays in the
// single digits.
func (a *ConsensusAnalyzer) DetectContradictions(
	scores map[string]float64,
	confidences map[string]float64,
	diffThreshold float64,
	confThreshold float64,
) []ContradictionRecord {
	brainIDs := make([]string, 0, len(scores))
	for id := range scores {
		brainIDs = append(brainIDs, id)
	}
	sort.Strings(brainIDs)

	now := time.Now().UTC()

	var contradictions []ContradictionRecord
	for i, brainA := range brainIDs {
		for _, brainB := range brainIDs[i+1:] {
			scoreA := scores[brainA]
			scoreB := scores[brainB]
			confA := confidenceOrDefault(confidences, brainA)
			confB := confidenceOrDefault(confidences, brainB)

			diff := math.Abs(scoreA - scoreB)

			if diff > diffThreshold && confA > confThreshold && confB > confThreshold {
				contradictions = append(contradictions, ContradictionRecord{
					BrainA:      brainA,
					BrainB:      brainB,
					ScoreA:      scoreA,
					ScoreB:      scoreB,
					ConfidenceA: confA,
					ConfidenceB: confB,
					ScoreDiff:   diff,
					Timestamp:   now,
				})
			}
		}
	}

	return contradictions
}

// confidenceOrDefault treats a missing confidence as neutral 0.5
func confidenceOrDefault(confidences map[string]float64, brainID string) float64 {
	if c, ok := confidences[brainID]; ok {
		return c
	}
	return 0.5
}
