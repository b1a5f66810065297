package brains

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fund-trader/internal/domain"
)

func f(v float64) *float64 { return &v }

func fullyDocumentedFund(isin string) domain.Fund {
	return domain.Fund{
		ISIN:       isin,
		Name:       "Test Fund",
		SRI:        4,
		AssetClass: domain.AssetClassEquities,
		Metrics: &domain.FundMetrics{
			SharpeRatio:  f(1.2),
			SortinoRatio: f(1.5),
			MaxDrawdown:  f(15.0),
			Perf1Y:       f(8.0),
		},
		ExpenseRatio: f(0.8),
		AUM:          f(500_000_000),
		PERatio:      f(16.0),
	}
}

func TestFundamentalBrain_AnalyzeFunds(t *testing.T) {
	brain := NewFundamentalBrain(zerolog.Nop())

	funds := []domain.Fund{fullyDocumentedFund("FR0000000001")}
	output := brain.AnalyzeFunds(funds)

	assert.Equal(t, "fundamental_v1", output.BrainID)
	require.Len(t, output.FundScores, 1)

	entry := output.FundScores[0]
	assert.Equal(t, "FR0000000001", entry.FundID)
	assert.GreaterOrEqual(t, entry.Score, 0.0)
	assert.LessOrEqual(t, entry.Score, 100.0)

	// All six data fields present pushes confidence to the cap
	assert.InDelta(t, 0.9, entry.Confidence, 0.0001)

	// Sub-scores and reasoning are written back onto the fund
	scored := funds[0]
	require.NotNil(t, scored.QualityScore)
	require.NotNil(t, scored.ValuationScore)
	require.NotNil(t, scored.StabilityScore)
	assert.NotEmpty(t, scored.Reasoning)
	assert.Equal(t, entry.Score, scored.Score)
}

func TestFundamentalBrain_NoDataScoresNeutral(t *testing.T) {
	brain := NewFundamentalBrain(zerolog.Nop())

	output := brain.AnalyzeFunds([]domain.Fund{{
		ISIN:       "XX0000000001",
		Name:       "Opaque Fund",
		AssetClass: domain.AssetClassBonds,
	}})

	require.Len(t, output.FundScores, 1)
	entry := output.FundScores[0]

	// Bonds carry no P/E benchmark, drawdown is unknown: valuation and
	// stability both sit at 50
	assert.InDelta(t, 0.5, entry.Confidence, 0.0001)
	assert.Greater(t, entry.Score, 40.0)
	assert.Less(t, entry.Score, 65.0)
}

func TestNormalizeQuality(t *testing.T) {
	tests := []struct {
		name     string
		raw      float64
		expected float64
	}{
		{"midpoint of range", 1.0, 50.0},
		{"lower clamp", -5.0, 0.0},
		{"upper clamp", 10.0, 100.0},
		{"zero raw quality", 0.0, 100.0 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, normalizeQuality(tt.raw), 0.01)
		})
	}
}

func TestValuationScore(t *testing.T) {
	// P/E at benchmark scores 50
	assert.InDelta(t, 50.0, valuationScore(f(20.0), 20.0), 0.01)

	// Cheap relative to benchmark scores above 50
	assert.InDelta(t, 75.0, valuationScore(f(10.0), 20.0), 0.01)

	// Extremely expensive clamps at zero
	assert.InDelta(t, 0.0, valuationScore(f(60.0), 20.0), 0.01)

	// Missing P/E is neutral
	assert.InDelta(t, 50.0, valuationScore(nil, 20.0), 0.01)
}

func TestStabilityScore(t *testing.T) {
	// No drawdown data is neutral
	assert.InDelta(t, 50.0, stabilityScore(0), 0.01)

	// Small drawdown keeps the score high
	assert.Greater(t, stabilityScore(10), 95.0)

	// Half the value lost halves the stability score
	assert.InDelta(t, 80.0, stabilityScore(50), 0.01)
}

func TestFundamentalBrain_Priority(t *testing.T) {
	brain := NewFundamentalBrain(zerolog.Nop())

	large := fullyDocumentedFund("FR0000000001")
	crashy := fullyDocumentedFund("FR0000000002")
	crashy.Metrics.MaxDrawdown = f(45.0)
	crashy.Metrics.SharpeRatio = f(0.3)
	middling := fullyDocumentedFund("FR0000000003")
	middling.AUM = f(10_000_000)
	expensive := fullyDocumentedFund("FR0000000004")
	expensive.ExpenseRatio = f(2.5)

	funds := []domain.Fund{large, crashy, middling, expensive}
	brain.AnalyzeFunds(funds)

	// Median expense in this universe is 0.8, so none of the 0.8 funds
	// qualify as high priority (expense must be strictly below the median)
	assert.Equal(t, domain.PriorityMedium, funds[0].Priority)
	assert.Equal(t, domain.PriorityLow, funds[1].Priority, "deep drawdown forces low priority")
	assert.Equal(t, domain.PriorityMedium, funds[2].Priority, "small AUM stays medium")
}

func TestClampHelpers(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-3))
	assert.Equal(t, 100.0, clampScore(140))
	assert.Equal(t, 55.5, clampScore(55.5))

	assert.Equal(t, 0.0, clampConfidence(-0.1))
	assert.Equal(t, 1.0, clampConfidence(1.4))
}
