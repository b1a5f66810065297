package universe

import "github.com/aristath/fund-trader/internal/domain"

// FundFilter narrows fund listing queries
type FundFilter struct {
	AssetClass domain.AssetClass
	MinSRI     int
	MaxSRI     int
	Search     string
	Limit      int
	Offset     int
}

// ImportStats summarizes one catalog import
type ImportStats struct {
	TotalRows    int `json:"total_rows"`
	Imported     int `json:"imported"`
	StandardISIN int `json:"standard_isin"`
	WithHistory  int `json:"with_history"`
}
