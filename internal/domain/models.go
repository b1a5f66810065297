package domain

// AssetClass represents a fund's broad asset class
type AssetClass string

const (
	AssetClassEquities    AssetClass = "actions"
	AssetClassBonds       AssetClass = "obligations"
	AssetClassDiversified AssetClass = "diversifie"
	AssetClassRealEstate  AssetClass = "immobilier"
	AssetClassMoneyMarket AssetClass = "monetaire"
	AssetClassEuroFunds   AssetClass = "fonds_euros"
	AssetClassOther       AssetClass = "autres"
)

// InvestmentHorizon represents the investor's time horizon
type InvestmentHorizon string

const (
	HorizonShort  InvestmentHorizon = "short"  // 0-3 years
	HorizonMedium InvestmentHorizon = "medium" // 3-7 years
	HorizonLong   InvestmentHorizon = "long"   // 7+ years
)

// Priority represents a fund's priority tier assigned by a brain
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// NavPoint represents a single NAV observation
type NavPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// FundMetrics holds risk/performance metrics derived from NAV history
type FundMetrics struct {
	Perf1W       *float64 `json:"perf_1w,omitempty"`
	Perf1M       *float64 `json:"perf_1m,omitempty"`
	Perf3M       *float64 `json:"perf_3m,omitempty"`
	Perf1Y       *float64 `json:"perf_1y,omitempty"`
	Perf3Y       *float64 `json:"perf_3y,omitempty"`
	Vol60D       *float64 `json:"vol_60d,omitempty"`
	MaxDrawdown  *float64 `json:"max_drawdown,omitempty"`
	SharpeRatio  *float64 `json:"sharpe_ratio,omitempty"`
	SortinoRatio *float64 `json:"sortino_ratio,omitempty"`
}

// Fund represents a fund from the universe catalog
type Fund struct {
	ISIN               string       `json:"isin"`
	Name               string       `json:"name"`
	ManagementCompany  string       `json:"management_company,omitempty"`
	SRI                int          `json:"sri"` // Risk indicator, 1-7
	AssetClass         AssetClass   `json:"asset_class"`
	Description        string       `json:"description,omitempty"`
	AvailablePlatforms []string     `json:"available_platforms,omitempty"`
	IsStandardISIN     bool         `json:"is_standard_isin"`
	Label              string       `json:"label,omitempty"`
	Metrics            *FundMetrics `json:"metrics,omitempty"`

	// Filled by brains when the fund has been scored
	Score      float64  `json:"score,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Priority   Priority `json:"priority,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`

	// Fundamental sub-scores, when the fundamental brain has run
	QualityScore   *float64 `json:"quality_score,omitempty"`
	ValuationScore *float64 `json:"valuation_score,omitempty"`
	StabilityScore *float64 `json:"stability_score,omitempty"`

	// Fund sheet data, present when a real data provider is wired
	ExpenseRatio *float64 `json:"expense_ratio,omitempty"`
	AUM          *float64 `json:"aum,omitempty"`
	PERatio      *float64 `json:"pe_ratio,omitempty"`
}

// ClampSRI clamps a raw risk indicator into the 1-7 range
func ClampSRI(sri int) int {
	if sri < 1 {
		return 1
	}
	if sri > 7 {
		return 7
	}
	return sri
}
