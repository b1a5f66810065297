package trunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeConsensus(t *testing.T) {
	analyzer := NewConsensusAnalyzer()

	tests := []struct {
		name          string
		scores        map[string]float64
		expectedSigma float64
		expectedLevel ConsensusLevel
	}{
		{
			name:          "single brain is strong by definition",
			scores:        map[string]float64{"a": 72},
			expectedSigma: 0,
			expectedLevel: ConsensusStrong,
		},
		{
			name:          "identical scores",
			scores:        map[string]float64{"a": 50, "b": 50},
			expectedSigma: 0,
			expectedLevel: ConsensusStrong,
		},
		{
			name:          "moderate disagreement",
			scores:        map[string]float64{"a": 50, "b": 65},
			expectedSigma: 10.61,
			expectedLevel: ConsensusModerate,
		},
		{
			name:          "full divergence",
			scores:        map[string]float64{"a": 10, "b": 90},
			expectedSigma: 56.57,
			expectedLevel: ConsensusDivergence,
		},
		{
			name:          "no scores",
			scores:        map[string]float64{},
			expectedSigma: 0,
			expectedLevel: ConsensusStrong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigma, level := analyzer.ComputeConsensus(tt.scores)
			assert.InDelta(t, tt.expectedSigma, sigma, 0.01)
			assert.Equal(t, tt.expectedLevel, level)
		})
	}
}

func TestDetectContradictions(t *testing.T) {
	analyzer := NewConsensusAnalyzer()

	tests := []struct {
		name        string
		scores      map[string]float64
		confidences map[string]float64
		expected    int
	}{
		{
			name:        "confident disagreement is a contradiction",
			scores:      map[string]float64{"a": 80, "b": 20},
			confidences: map[string]float64{"a": 0.9, "b": 0.9},
			expected:    1,
		},
		{
			name:        "low confidence suppresses the flag",
			scores:      map[string]float64{"a": 80, "b": 20},
			confidences: map[string]float64{"a": 0.5, "b": 0.9},
			expected:    0,
		},
		{
			name:        "small difference is not a contradiction",
			scores:      map[string]float64{"a": 60, "b": 40},
			confidences: map[string]float64{"a": 0.95, "b": 0.95},
			expected:    0,
		},
		{
			name:        "boundary difference of exactly 30 does not flag",
			scores:      map[string]float64{"a": 65, "b": 35},
			confidences: map[string]float64{"a": 0.9, "b": 0.9},
			expected:    0,
		},
		{
			name:        "boundary confidence of exactly 0.8 does not flag",
			scores:      map[string]float64{"a": 90, "b": 10},
			confidences: map[string]float64{"a": 0.8, "b": 0.9},
			expected:    0,
		},
		{
			name:        "three confident brains pairwise",
			scores:      map[string]float64{"a": 90, "b": 10, "c": 50},
			confidences: map[string]float64{"a": 0.9, "b": 0.9, "c": 0.9},
			expected:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := analyzer.DetectContradictions(
				tt.scores, tt.confidences,
				ContradictionDiffThreshold, ContradictionMinConfidence,
			)
			assert.Len(t, records, tt.expected)
		})
	}
}

func TestDetectContradictions_RecordFields(t *testing.T) {
	analyzer := NewConsensusAnalyzer()

	records := analyzer.DetectContradictions(
		map[string]float64{"alpha": 85, "beta": 15},
		map[string]float64{"alpha": 0.9, "beta": 0.85},
		ContradictionDiffThreshold, ContradictionMinConfidence,
	)

	assert.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "alpha", record.BrainA)
	assert.Equal(t, "beta", record.BrainB)
	assert.Equal(t, 85.0, record.ScoreA)
	assert.Equal(t, 15.0, record.ScoreB)
	assert.Equal(t, 70.0, record.ScoreDiff)
	assert.False(t, record.Timestamp.IsZero())
}
