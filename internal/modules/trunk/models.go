package trunk

import "time"

// BrainType categorizes a brain by methodology
type BrainType string

const (
	BrainTypeFundamental BrainType = "fundamental"
	BrainTypeQuant       BrainType = "quant"
	BrainTypeMacro       BrainType = "macro"
	BrainTypeBehavioral  BrainType = "behavioral"
	BrainTypeAdaptive    BrainType = "adaptive"
	BrainTypeHybrid      BrainType = "hybrid"
)

// BrainRole describes how a brain participates in the system
type BrainRole string

const (
	BrainRoleCore         BrainRole = "core"
	BrainRoleExperimental BrainRole = "experimental"
	BrainRoleHybrid       BrainRole = "hybrid"
)

// BrainHorizon is the investment horizon a brain focuses on
type BrainHorizon string

const (
	BrainHorizonShortTerm  BrainHorizon = "short_term"
	BrainHorizonMediumTerm BrainHorizon = "medium_term"
	BrainHorizonLongTerm   BrainHorizon = "long_term"
)

// ConsensusLevel classifies agreement between brains for one fund
type ConsensusLevel string

const (
	ConsensusStrong     ConsensusLevel = "STRONG"     // sigma < 10
	ConsensusModerate   ConsensusLevel = "MODERATE"   // 10 <= sigma < 20
	ConsensusWeak       ConsensusLevel = "WEAK"       // 20 <= sigma < 30
	ConsensusDivergence ConsensusLevel = "DIVERGENCE" // sigma >= 30
)

// ScoreEntry is one brain's score for one fund. This is the standardized
// format every brain must output; the trunk reads nothing else from a brain.
type ScoreEntry struct {
	FundID     string  `json:"fund_id"`
	Score      float64 `json:"score"`      // 0-100
	Confidence float64 `json:"confidence"` // 0-1
}

// BrainOutput is a brain's full pass over the fund universe. The trunk only
// uses BrainID and the ScoreEntry fields; everything else is metadata for
// logs and observability.
type BrainOutput struct {
	BrainID    string       `json:"brain_id"`
	Label      string       `json:"label"`
	BrainType  BrainType    `json:"brain_type"`
	Version    string       `json:"version"`
	Horizon    BrainHorizon `json:"horizon"`
	Role       BrainRole    `json:"role"`
	Timestamp  time.Time    `json:"timestamp"`
	FundScores []ScoreEntry `json:"fund_scores"`
}

// BrainRegistration is the registry entry for a brain. Brains are never
// deleted, only deactivated.
type BrainRegistration struct {
	BrainID       string       `json:"brain_id"`
	Label         string       `json:"label"`
	BrainType     BrainType    `json:"brain_type"`
	Version       string       `json:"version"`
	Role          BrainRole    `json:"role"`
	Horizon       BrainHorizon `json:"horizon"`
	DefaultWeight float64      `json:"default_weight"` // 0-1
	IsActive      bool         `json:"is_active"`
	Description   string       `json:"description,omitempty"`
}

// WeightSnapshot is one entry in the weight change history
type WeightSnapshot struct {
	Weights   map[string]float64 `json:"weights"`
	Reason    string             `json:"reason"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// FundComposite is the aggregated score for one fund after a trunk pass
type FundComposite struct {
	FundID            string             `json:"fund_id"`
	CompositeScore    float64            `json:"composite_score"` // 0-100
	ScoresByBrain     map[string]float64 `json:"scores_by_brain"`
	ConfidenceByBrain map[string]float64 `json:"confidences_by_brain"`
	ConsensusSigma    float64            `json:"consensus_sigma"`
	ConsensusLevel    ConsensusLevel     `json:"consensus_level"`
	SRI               int                `json:"sri"` // 1-7
}

// ContradictionRecord flags a pair of brains that disagree strongly on one
// fund while both being highly confident. Rebuilt on every pass.
type ContradictionRecord struct {
	FundID      string    `json:"fund_id"`
	BrainA      string    `json:"brain_a"`
	BrainB      string    `json:"brain_b"`
	ScoreA      float64   `json:"score_a"`
	ScoreB      float64   `json:"score_b"`
	ConfidenceA float64   `json:"confidence_a"`
	ConfidenceB float64   `json:"confidence_b"`
	ScoreDiff   float64   `json:"score_diff"`
	Timestamp   time.Time `json:"timestamp"`
}

// RankingEntry is one row of the global ranking
type RankingEntry struct {
	FundID         string  `json:"fund_id"`
	CompositeScore float64 `json:"composite_score"`
	SRI            int     `json:"sri"`
	Rank           int     `json:"rank"` // 1-based
}

// TrunkOutput is the complete result of one aggregation pass
type TrunkOutput struct {
	PassID          string                `json:"pass_id"`
	Timestamp       time.Time             `json:"timestamp"`
	CompositeScores []FundComposite       `json:"composite_scores"`
	GlobalRanking   []RankingEntry        `json:"global_ranking"`
	WeightsUsed     map[string]float64    `json:"weights_used"`
	ActiveBrains    []string              `json:"active_brains"`
	TotalFunds      int                   `json:"total_funds"`
	Contradictions  []ContradictionRecord `json:"contradictions,omitempty"`
}
