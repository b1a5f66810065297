package brains

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
	"github.com/aristath/fund-trader/internal/modules/trunk"
	"github.com/aristath/fund-trader/pkg/formulas"
)

// Fundamental scoring weights
const (
	fundamentalQualityWeight   = 0.40
	fundamentalValuationWeight = 0.30
	fundamentalStabilityWeight = 0.30
)

// Priority classification thresholds
const (
	aumHighThreshold    = 100_000_000 // EUR
	sharpeHighThreshold = 1.0
	maxDrawdownLowPct   = 30.0 // %
)

// peBenchmarks maps asset classes to their P/E benchmark. Classes without a
// meaningful P/E get no benchmark and score neutral on valuation.
var peBenchmarks = map[domain.AssetClass]float64{
	domain.AssetClassEquities:    20.0,
	domain.AssetClassDiversified: 15.0,
	domain.AssetClassRealEstate:  18.0,
	domain.AssetClassOther:       15.0,
}

// FundamentalBrain scores funds on three dimensions:
//
//   - Quality of management (40%): Sharpe/Sortino ratios discounted by fees
//   - Valuation (30%): fund P/E against its asset class benchmark
//   - Stability (30%): 1 / (1 + max_drawdown^2)
type FundamentalBrain struct {
	medianExpenseRatio float64
	log                zerolog.Logger
}

// NewFundamentalBrain creates a new fundamental brain
func NewFundamentalBrain(log zerolog.Logger) *FundamentalBrain {
	return &FundamentalBrain{
		medianExpenseRatio: 1.5, // market average until computed from data
		log:                log.With().Str("brain", "fundamental_v1").Logger(),
	}
}

// Registration describes the brain for the trunk registry
func (b *FundamentalBrain) Registration() trunk.BrainRegistration {
	return trunk.BrainRegistration{
		BrainID:       "fundamental_v1",
		Label:         "Fundamental Analysis",
		BrainType:     trunk.BrainTypeFundamental,
		Version:       "1.1.0",
		Role:          trunk.BrainRoleCore,
		Horizon:       trunk.BrainHorizonMediumTerm,
		DefaultWeight: 0.6,
		Description:   "Quality of management, valuation and stability scoring",
	}
}

// AnalyzeFunds scores the whole fund universe
func (b *FundamentalBrain) AnalyzeFunds(funds []domain.Fund) trunk.BrainOutput {
	b.updateMedianExpenseRatio(funds)

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

// analyzeFund scores one fund and annotates it with sub-scores, priority and
// reasoning for display purposes.
func (b *FundamentalBrain) analyzeFund(fund *domain.Fund) trunk.ScoreEntry {
	qualityScore := normalizeQuality(b.rawQuality(fund))

	var vScore float64
	benchmark, hasBenchmark := peBenchmarks[fund.AssetClass]
	if hasBenchmark {
		vScore = valuationScore(fund.PERatio, benchmark)
	} else {
		vScore = 50.0
	}

	sScore := stabilityScore(maxDrawdownPct(fund))

	total := fundamentalQualityWeight*qualityScore +
		fundamentalValuationWeight*vScore +
		fundamentalStabilityWeight*sScore

	score := formulas.Round2(clampScore(total))
	confidence := b.confidence(fund)

	fund.Score = score
	fund.Confidence = confidence
	fund.Priority = b.priority(fund, qualityScore)
	fund.QualityScore = floatPtr(formulas.Round2(qualityScore))
	fund.ValuationScore = floatPtr(formulas.Round2(vScore))
	fund.StabilityScore = floatPtr(formulas.Round2(sScore))
	fund.Reasoning = reasoning(fund, qualityScore, vScore, sScore)

	return trunk.ScoreEntry{
		FundID:     fund.ISIN,
		Score:      score,
		Confidence: confidence,
	}
}

// rawQuality computes Q = [(Sharpe + Sortino) / 2] x [1 - expense_ratio/100]
func (b *FundamentalBrain) rawQuality(fund *domain.Fund) float64 {
	sharpe := 0.5 // neutral fallback
	if fund.Metrics != nil && fund.Metrics.SharpeRatio != nil {
		sharpe = *fund.Metrics.SharpeRatio
	}

	sortino := sharpe
	if fund.Metrics != nil && fund.Metrics.SortinoRatio != nil {
		sortino = *fund.Metrics.SortinoRatio
	}

	expense := 1.5 // market average fallback
	if fund.ExpenseRatio != nil {
		expense = *fund.ExpenseRatio
	}

	return (sharpe + sortino) / 2 * (1 - expense/100)
}

// confidence grows with data completeness, capped at 0.95
func (b *FundamentalBrain) confidence(fund *domain.Fund) float64 {
	var fields []bool
	if fund.Metrics != nil {
		fields = []bool{
			fund.Metrics.SharpeRatio != nil,
			fund.Metrics.SortinoRatio != nil,
			fund.Metrics.MaxDrawdown != nil,
			fund.Metrics.Perf1Y != nil,
		}
	} else {
		fields = []bool{false, false, false, false}
	}
	fields = append(fields, fund.ExpenseRatio != nil, fund.AUM != nil)

	available := 0
	for _, ok := range fields {
		if ok {
			available++
		}
	}

	confidence := 0.5 + float64(available)/float64(len(fields))*0.4
	return formulas.Round2(clampConfidence(math.Min(0.95, confidence)))
}

// priority classifies a fund into high/medium/low tiers
func (b *FundamentalBrain) priority(fund *domain.Fund, qualityScore float64) domain.Priority {
	aum := 0.0
	if fund.AUM != nil {
		aum = *fund.AUM
	}
	expense := 2.0
	if fund.ExpenseRatio != nil {
		expense = *fund.ExpenseRatio
	}
	sharpe := 0.0
	if fund.Metrics != nil && fund.Metrics.SharpeRatio != nil {
		sharpe = *fund.Metrics.SharpeRatio
	}

	if aum > aumHighThreshold && expense < b.medianExpenseRatio && sharpe > sharpeHighThreshold {
		return domain.PriorityHigh
	}

	if maxDrawdownPct(fund) > maxDrawdownLowPct {
		return domain.PriorityLow
	}

	return domain.PriorityMedium
}

// updateMedianExpenseRatio recomputes the median expense ratio for priority
// classification from the current universe.
func (b *FundamentalBrain) updateMedianExpenseRatio(funds []domain.Fund) {
	var ratios []float64
	for i := range funds {
		if funds[i].ExpenseRatio != nil {
			ratios = append(ratios, *funds[i].ExpenseRatio)
		}
	}

	if len(ratios) == 0 {
		return
	}

	sort.Float64s(ratios)
	b.medianExpenseRatio = ratios[len(ratios)/2]
}

// normalizeQuality maps the raw quality value (typical range -2..+4) onto
// the 0-100 scale.
func normalizeQuality(q float64) float64 {
	clamped := math.Max(-2, math.Min(4, q))
	return (clamped + 2) / 6 * 100
}

// valuationScore computes V = 100 - 50 x (PE_fund / PE_benchmark), neutral 50
// when P/E data is unavailable.
func valuationScore(peFund *float64, peBenchmark float64) float64 {
	if peFund == nil || peBenchmark == 0 {
		return 50.0
	}

	return clampScore(100 - 50*(*peFund/peBenchmark))
}

// stabilityScore computes S = 1 / (1 + max_drawdown^2) on the 0-100 scale.
// maxDD is a percentage (30 for 30%); zero means no drawdown data.
func stabilityScore(maxDD float64) float64 {
	if maxDD == 0 {
		return 50.0
	}

	dd := maxDD / 100.0
	return 1 / (1 + dd*dd) * 100
}

// maxDrawdownPct returns the fund's max drawdown as a percentage, 0 if unknown
func maxDrawdownPct(fund *domain.Fund) float64 {
	if fund.Metrics == nil || fund.Metrics.MaxDrawdown == nil {
		return 0
	}
	return *fund.Metrics.MaxDrawdown
}

// reasoning builds a short human-readable explanation of the score
func reasoning(fund *domain.Fund, qScore, vScore, sScore float64) string {
	var parts []string

	switch {
	case qScore > 70:
		parts = append(parts, "excellent management quality")
	case qScore > 50:
		parts = append(parts, "decent management quality")
	case qScore < 40:
		parts = append(parts, "poor management quality")
	}

	if fund.ExpenseRatio != nil {
		if *fund.ExpenseRatio < 1.0 {
			parts = append(parts, "low fees")
		} else if *fund.ExpenseRatio > 2.0 {
			parts = append(parts, "high fees")
		}
	}

	if vScore > 60 {
		parts = append(parts, "attractive valuation")
	} else if vScore < 40 {
		parts = append(parts, "stretched valuation")
	}

	if sScore > 70 {
		parts = append(parts, "very stable")
	} else if sScore < 40 {
		parts = append(parts, "high volatility")
	}

	switch fund.Priority {
	case domain.PriorityHigh:
		parts = append(parts, "high priority")
	case domain.PriorityLow:
		parts = append(parts, "low priority")
	}

	if len(parts) == 0 {
		return "Balanced profile"
	}
	return strings.Join(parts, ", ")
}

func floatPtr(f float64) *float64 {
	return &f
}
