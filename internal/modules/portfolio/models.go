package portfolio

import "github.com/aristath/fund-trader/internal/domain"

// ProposalRequest is the input to portfolio generation
type ProposalRequest struct {
	Amount       float64                  `json:"amount"`
	Horizon      domain.InvestmentHorizon `json:"horizon"`
	TargetSRI    int                      `json:"target_sri"`
	SRITolerance float64                  `json:"sri_tolerance"`
}

// Candidate is one scored fund eligible for allocation. Candidates come from
// the trunk ranking joined with the fund catalog.
type Candidate struct {
	ISIN           string            `json:"isin"`
	Name           string            `json:"name"`
	AssetClass     domain.AssetClass `json:"asset_class"`
	SRI            int               `json:"sri"`
	CompositeScore float64           `json:"composite_score"`
	Confidence     float64           `json:"confidence"`
	Priority       domain.Priority   `json:"priority,omitempty"`
	Reasoning      string            `json:"reasoning,omitempty"`
}

// FundAllocation is one line of a proposal
type FundAllocation struct {
	ISIN              string            `json:"isin"`
	Name              string            `json:"name"`
	AssetClass        domain.AssetClass `json:"asset_class"`
	SRI               int               `json:"sri"`
	CompositeScore    float64           `json:"composite_score"`
	AllocationPercent float64           `json:"allocation_percent"`
	AmountEUR         float64           `json:"amount_eur"`
	Reasoning         string            `json:"reasoning,omitempty"`
}

// Proposal is a complete portfolio suggestion
type Proposal struct {
	Allocations            []FundAllocation              `json:"allocations"`
	TotalAmount            float64                       `json:"total_amount"`
	AverageSRI             float64                       `json:"average_sri"`
	NumFunds               int                           `json:"num_funds"`
	AssetClassDistribution map[domain.AssetClass]float64 `json:"asset_class_distribution"`
	AverageConfidence      float64                       `json:"average_confidence"`
	PriorityCounts         map[domain.Priority]int       `json:"priority_counts,omitempty"`
	Explanation            string                        `json:"explanation"`
}
