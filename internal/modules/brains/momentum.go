package brains

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
	"github.com/aristath/fund-trader/internal/modules/trunk"
	"github.com/aristath/fund-trader/pkg/formulas"
)

// Momentum lookback windows, in trading days
const (
	momentumShortWindow = 20
	momentumLongWindow  = 60
	rsiPeriod           = 14
)

// NavSource provides NAV close series for momentum calculations
type NavSource interface {
	// Closes returns up to `days` most recent NAV values for the fund,
	// oldest first. A short or empty slice means limited history.
	Closes(isin string, days int) ([]float64, error)
}

// MomentumBrain scores funds on short-term price behavior: trend over 20 and
// 60 day windows, RSI positioning and realized volatility. Funds with no NAV
// history score neutral with low confidence.
type MomentumBrain struct {
	navs NavSource
	log  zerolog.Logger
}

// NewMomentumBrain creates a new momentum brain
func NewMomentumBrain(navs NavSource, log zerolog.Logger) *MomentumBrain {
	return &MomentumBrain{
		navs: navs,
		log:  log.With().Str("brain", "momentum_v1").Logger(),
	}
}

// Registration describes the brain for the trunk registry
func (b *MomentumBrain) Registration() trunk.BrainRegistration {
	return trunk.BrainRegistration{
		BrainID:       "momentum_v1",
		Label:         "Momentum",
		BrainType:     trunk.BrainTypeQuant,
		Version:       "1.0.0",
		Role:          trunk.BrainRoleCore,
		Horizon:       trunk.BrainHorizonShortTerm,
		DefaultWeight: 0.4,
		Description:   "Trend, RSI and volatility scoring over NAV history",
	}
}

// AnalyzeFunds scores the whole fund universe
func (b *MomentumBrain) AnalyzeFunds(funds []domain.Fund) trunk.BrainOutput {
	entries := make([]trunk.ScoreEntry, 0, len(funds))
	for i := range funds {
		entries = append(entries, b.analyzeFund(&funds[i]))
	}

	reg := b.Registration()
	return trunk.BrainOutput{
		BrainID:    reg.BrainID,
		Label:      reg.Label,
		BrainType:  reg.BrainType,
		Version:    reg.Version,
		Horizon:    reg.Horizon,
		Role:       reg.Role,
		Timestamp:  time.Now().UTC(),
		FundScores: entries,
	}
}

func (b *MomentumBrain) analyzeFund(fund *domain.Fund) trunk.ScoreEntry {
	closes, err := b.navs.Closes(fund.ISIN, momentumLongWindow+rsiPeriod+1)
	if err != nil {
		b.log.Debug().Err(err).Str("isin", fund.ISIN).Msg("NAV history unavailable")
		return trunk.ScoreEntry{FundID: fund.ISIN, Score: 50.0, Confidence: 0.3}
	}

	score := 50.0

	shortMom := formulas.CalculateMomentum(closes, momentumShortWindow)
	longMom := formulas.CalculateMomentum(closes, momentumLongWindow)
	rsi := formulas.CalculateRSI(closes, rsiPeriod)
	vol := formulas.CalculateVolatilityWindow(closes, momentumLongWindow)

	// Trend: short window weighs double the long window
	if shortMom != nil {
		score += *shortMom * 100 * 2.0
	}
	if longMom != nil {
		score += *longMom * 100 * 1.0
	}

	// RSI positioning: penalize overbought, reward oversold slightly
	if rsi != nil {
		switch {
		case *rsi > 70:
			score -= (*rsi - 70) * 0.5
		case *rsi < 30:
			score += (30 - *rsi) * 0.3
		}
	}

	// High realized volatility discounts the trend signal
	if vol != nil && *vol > 0.25 {
		score -= (*vol - 0.25) * 40
	}

	entry := trunk.ScoreEntry{
		FundID:     fund.ISIN,
		Score:      math.Round(clampScore(score)*100) / 100,
		Confidence: b.confidence(len(closes)),
	}

	fund.Score = entry.Score
	fund.Confidence = entry.Confidence
	fund.Reasoning = momentumReasoning(shortMom, longMom, rsi)

	return entry
}

// confidence grows with the depth of the NAV series, from 0.3 with no data
// up to 0.9 with a full long window plus RSI warmup.
func (b *MomentumBrain) confidence(points int) float64 {
	full := momentumLongWindow + rsiPeriod + 1

	ratio := float64(points) / float64(full)
	if ratio > 1 {
		ratio = 1
	}

	return math.Round((0.3+ratio*0.6)*100) / 100
}

func momentumReasoning(shortMom, longMom, rsi *float64) string {
	if shortMom == nil && longMom == nil {
		return "Insufficient NAV history for trend analysis"
	}

	trend := "flat trend"
	if shortMom != nil {
		switch {
		case *shortMom > 0.02:
			trend = "strong upward trend"
		case *shortMom > 0:
			trend = "mild upward trend"
		case *shortMom < -0.02:
			trend = "strong downward trend"
		case *shortMom < 0:
			trend = "mild downward trend"
		}
	}

	if rsi == nil {
		return trend
	}

	switch {
	case *rsi > 70:
		return fmt.Sprintf("%s, overbought (RSI %.0f)", trend, *rsi)
	case *rsi < 30:
		return fmt.Sprintf("%s, oversold (RSI %.0f)", trend, *rsi)
	default:
		return fmt.Sprintf("%s, RSI %.0f", trend, *rsi)
	}
}
