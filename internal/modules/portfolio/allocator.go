package portfolio

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
	"github.com/aristath/fund-trader/pkg/formulas"
)

// Allocation constraints
const (
	MaxAllocationPerFund = 0.20 // no fund above 20% of the portfolio
	MinFunds             = 5
	MaxFunds             = 15
	maxFundsPerClass     = 4
	fundsPerTargetClass  = 2
)

// Allocator turns a scored candidate list into a portfolio proposal. The
// process has two phases: select funds per the horizon's target asset
// classes, then weight selected funds by composite score under the per-fund
// cap.
type Allocator struct {
	policy HorizonPolicy
	log    zerolog.Logger
}

// NewAllocator creates a new allocator
func NewAllocator(policy HorizonPolicy, log zerolog.Logger) *Allocator {
	return &Allocator{
		policy: policy,
		log:    log.With().Str("service", "allocator").Logger(),
	}
}

// Propose builds a portfolio proposal from the candidate list. An empty
// candidate list produces an empty proposal, not an error.
func (a *Allocator) Propose(req ProposalRequest, candidates []Candidate) Proposal {
	if len(candidates) == 0 {
		return Proposal{
			Allocations:            []FundAllocation{},
			TotalAmount:            req.Amount,
			AssetClassDistribution: map[domain.AssetClass]float64{},
			Explanation:            "No eligible funds matched the requested risk profile",
		}
	}

	selected := a.selectFunds(req.Horizon, candidates)
	allocations := a.weight(req.Amount, selected)
	proposal := a.summarize(req, allocations, selected)

	a.log.Info().
		Str("horizon", string(req.Horizon)).
		Float64("amount", req.Amount).
		Int("funds", proposal.NumFunds).
		Float64("avg_sri", proposal.AverageSRI).
		Msg("Portfolio proposal generated")

	return proposal
}

// selectFunds picks funds in three steps: the best funds of each target asset
// class first, then a score-ordered scan of the full candidate list growing
// the portfolio up to MaxFunds while each class stays under its cap, then a
// backfill up to the minimum fund count. The backfill ignores class caps so a
// thin universe still yields a usable portfolio.
func (a *Allocator) selectFunds(horizon domain.InvestmentHorizon, candidates []Candidate) []Candidate {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompositeScore > sorted[j].CompositeScore
	})

	targets := a.policy.TargetsFor(horizon)

	var selected []Candidate
	picked := make(map[string]bool)
	perClass := make(map[domain.AssetClass]int)

	for _, class := range targets {
		taken := 0
		for _, c := range sorted {
			if taken >= fundsPerTargetClass || len(selected) >= MaxFunds {
				break
			}
			if c.AssetClass != class || picked[c.ISIN] || perClass[class] >= maxFundsPerClass {
				continue
			}

			selected = append(selected, c)
			picked[c.ISIN] = true
			perClass[class]++
			taken++
		}
	}

	for _, c := range sorted {
		if len(selected) >= MaxFunds {
			break
		}
		if picked[c.ISIN] || perClass[c.AssetClass] >= maxFundsPerClass {
			continue
		}

		selected = append(selected, c)
		picked[c.ISIN] = true
		perClass[c.AssetClass]++
	}

	for _, c := range sorted {
		if len(selected) >= MinFunds {
			break
		}
		if picked[c.ISIN] {
			continue
		}
		selected = append(selected, c)
		picked[c.ISIN] = true
	}

	return selected
}

// weight distributes the amount across selected funds proportionally to
// composite score, capping each fund at MaxAllocationPerFund. Weight clipped
// by the cap is handed back in one pass, an equal extra share per fund
// re-capped at the ceiling, so a portfolio where most funds sit at the cap
// keeps the shortfall and totals under 100%.
func (a *Allocator) weight(amount float64, selected []Candidate) []FundAllocation {
	if len(selected) == 0 {
		return []FundAllocation{}
	}

	totalScore := 0.0
	for _, c := range selected {
		totalScore += c.CompositeScore
	}

	weights := make([]float64, len(selected))
	if totalScore == 0 {
		equal := 1.0 / float64(len(selected))
		for i := range weights {
			weights[i] = equal
		}
	} else {
		for i, c := range selected {
			weights[i] = c.CompositeScore / totalScore
		}
	}

	remainder := 0.0
	for i, w := range weights {
		if w > MaxAllocationPerFund {
			remainder += w - MaxAllocationPerFund
			weights[i] = MaxAllocationPerFund
		}
	}

	if remainder > 0.0001 {
		extra := remainder / float64(len(weights))
		for i := range weights {
			weights[i] = math.Min(MaxAllocationPerFund, weights[i]+extra)
		}
	}

	allocations := make([]FundAllocation, 0, len(selected))
	for i, c := range selected {
		percent := formulas.Round2(weights[i] * 100)
		allocations = append(allocations, FundAllocation{
			ISIN:              c.ISIN,
			Name:              c.Name,
			AssetClass:        c.AssetClass,
			SRI:               c.SRI,
			CompositeScore:    c.CompositeScore,
			AllocationPercent: percent,
			AmountEUR:         formulas.Round2(amount * percent / 100),
			Reasoning:         c.Reasoning,
		})
	}

	return allocations
}

// summarize computes proposal-level statistics from the allocation lines
func (a *Allocator) summarize(req ProposalRequest, allocations []FundAllocation, selected []Candidate) Proposal {
	distribution := make(map[domain.AssetClass]float64)
	weightedSRI := 0.0
	totalPercent := 0.0
	for _, alloc := range allocations {
		distribution[alloc.AssetClass] = formulas.Round2(distribution[alloc.AssetClass] + alloc.AllocationPercent)
		weightedSRI += float64(alloc.SRI) * alloc.AllocationPercent
		totalPercent += alloc.AllocationPercent
	}

	avgSRI := 0.0
	if totalPercent > 0 {
		avgSRI = formulas.Round2(weightedSRI / totalPercent)
	}

	totalConfidence := 0.0
	priorityCounts := make(map[domain.Priority]int)
	for _, c := range selected {
		totalConfidence += c.Confidence
		if c.Priority != "" {
			priorityCounts[c.Priority]++
		}
	}
	avgConfidence := 0.0
	if len(selected) > 0 {
		avgConfidence = formulas.Round2(totalConfidence / float64(len(selected)))
	}

	return Proposal{
		Allocations:            allocations,
		TotalAmount:            req.Amount,
		AverageSRI:             avgSRI,
		NumFunds:               len(allocations),
		AssetClassDistribution: distribution,
		AverageConfidence:      avgConfidence,
		PriorityCounts:         priorityCounts,
		Explanation:            explain(req, allocations, avgSRI),
	}
}

func explain(req ProposalRequest, allocations []FundAllocation, avgSRI float64) string {
	horizonLabel := map[domain.InvestmentHorizon]string{
		domain.HorizonShort:  "short-term (0-3 years)",
		domain.HorizonMedium: "medium-term (3-7 years)",
		domain.HorizonLong:   "long-term (7+ years)",
	}[req.Horizon]
	if horizonLabel == "" {
		horizonLabel = string(req.Horizon)
	}

	classes := make(map[domain.AssetClass]bool)
	for _, alloc := range allocations {
		classes[alloc.AssetClass] = true
	}
	classNames := make([]string, 0, len(classes))
	for class := range classes {
		classNames = append(classNames, string(class))
	}
	sort.Strings(classNames)

	return fmt.Sprintf(
		"Portfolio of %d funds for a %s horizon, spread across %s. Average risk indicator %.1f against a target of %d.",
		len(allocations), horizonLabel, strings.Join(classNames, ", "), avgSRI, req.TargetSRI,
	)
}
