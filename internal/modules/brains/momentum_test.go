package brains

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fund-trader/internal/domain"
)

// stubNavSource serves a fixed series per ISIN
type stubNavSource struct {
	series map[string][]float64
}

func (s *stubNavSource) Closes(isin string, days int) ([]float64, error) {
	closes, ok := s.series[isin]
	if !ok {
		return nil, errors.New("no history")
	}
	if len(closes) > days {
		closes = closes[len(closes)-days:]
	}
	return closes, nil
}

func trendSeries(n int, dailyChange float64) []float64 {
	series := make([]float64, n)
	nav := 100.0
	for i := range series {
		series[i] = nav
		nav *= 1 + dailyChange
	}
	return series
}

func TestMomentumBrain_AnalyzeFunds(t *testing.T) {
	navs := &stubNavSource{series: map[string][]float64{
		"FR0000000001": trendSeries(100, 0.002),
		"FR0000000002": trendSeries(100, -0.002),
	}}
	brain := NewMomentumBrain(navs, zerolog.Nop())

	funds := []domain.Fund{
		{ISIN: "FR0000000001", Name: "Rising"},
		{ISIN: "FR0000000002", Name: "Falling"},
	}
	output := brain.AnalyzeFunds(funds)

	assert.Equal(t, "momentum_v1", output.BrainID)
	require.Len(t, output.FundScores, 2)

	rising := output.FundScores[0]
	falling := output.FundScores[1]

	assert.Greater(t, rising.Score, 50.0, "uptrend scores above neutral")
	assert.Less(t, falling.Score, 50.0, "downtrend scores below neutral")

	// Full history gives maximum confidence
	assert.InDelta(t, 0.9, rising.Confidence, 0.0001)

	assert.NotEmpty(t, funds[0].Reasoning)
	assert.Equal(t, rising.Score, funds[0].Score)
}

func TestMomentumBrain_NoHistoryScoresNeutral(t *testing.T) {
	brain := NewMomentumBrain(&stubNavSource{}, zerolog.Nop())

	output := brain.AnalyzeFunds([]domain.Fund{{ISIN: "XX0000000001"}})

	require.Len(t, output.FundScores, 1)
	entry := output.FundScores[0]
	assert.Equal(t, 50.0, entry.Score)
	assert.Equal(t, 0.3, entry.Confidence)
}

func TestMomentumBrain_ShortHistoryLowersConfidence(t *testing.T) {
	navs := &stubNavSource{series: map[string][]float64{
		"FR0000000001": trendSeries(25, 0.001),
	}}
	brain := NewMomentumBrain(navs, zerolog.Nop())

	output := brain.AnalyzeFunds([]domain.Fund{{ISIN: "FR0000000001"}})

	require.Len(t, output.FundScores, 1)
	entry := output.FundScores[0]
	assert.Greater(t, entry.Confidence, 0.3)
	assert.Less(t, entry.Confidence, 0.9)
}

func TestMomentumBrain_ScoresStayInRange(t *testing.T) {
	navs := &stubNavSource{series: map[string][]float64{
		"FR0000000001": trendSeries(100, 0.05),
		"FR0000000002": trendSeries(100, -0.05),
	}}
	brain := NewMomentumBrain(navs, zerolog.Nop())

	output := brain.AnalyzeFunds([]domain.Fund{
		{ISIN: "FR0000000001"},
		{ISIN: "FR0000000002"},
	})

	for _, entry := range output.FundScores {
		assert.GreaterOrEqual(t, entry.Score, 0.0)
		assert.LessOrEqual(t, entry.Score, 100.0)
	}
}

func TestMomentumReasoning(t *testing.T) {
	up := 0.05
	down := -0.05
	overbought := 85.0
	oversold := 20.0

	assert.Equal(t, "Insufficient NAV history for trend analysis",
		momentumReasoning(nil, nil, nil))
	assert.Equal(t, "strong upward trend", momentumReasoning(&up, &up, nil))
	assert.Equal(t, "strong downward trend, oversold (RSI 20)",
		momentumReasoning(&down, &down, &oversold))
	assert.Contains(t, momentumReasoning(&up, &up, &overbought), "overbought")
}
