package portfolio

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
	"github.com/aristath/fund-trader/internal/events"
	"github.com/aristath/fund-trader/internal/modules/trunk"
	"github.com/aristath/fund-trader/pkg/formulas"
)

// FundCatalog resolves fund details for scored fund ids. Implemented by the
// universe fund repository.
type FundCatalog interface {
	FundsByISIN(isins []string) (map[string]domain.Fund, error)
}

// Service generates portfolio proposals by joining the trunk ranking with
// the fund catalog and running the allocator over the eligible set.
type Service struct {
	engine    *trunk.Engine
	refresher trunk.Refresher
	catalog   FundCatalog
	allocator *Allocator
	events    *events.Manager
	log       zerolog.Logger
}

// NewService creates a new portfolio service. eventMgr may be nil.
func NewService(
	engine *trunk.Engine,
	refresher trunk.Refresher,
	catalog FundCatalog,
	allocator *Allocator,
	eventMgr *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		engine:    engine,
		refresher: refresher,
		catalog:   catalog,
		allocator: allocator,
		events:    eventMgr,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// GenerateProposal builds a portfolio proposal for the request. The scored
// universe comes from the last aggregation pass; a fresh pass runs when no
// cached one exists.
func (s *Service) GenerateProposal(req ProposalRequest) (Proposal, error) {
	output := s.engine.LastOutput()
	if output == nil {
		if s.refresher == nil {
			return Proposal{}, fmt.Errorf("no aggregation pass available")
		}
		var err error
		output, err = s.refresher.Rescore()
		if err != nil {
			return Proposal{}, fmt.Errorf("failed to refresh scores: %w", err)
		}
	}

	eligible := trunk.FundsForAllocation(output, req.TargetSRI, req.SRITolerance)

	candidates, err := s.buildCandidates(output, eligible)
	if err != nil {
		return Proposal{}, err
	}

	proposal := s.allocator.Propose(req, candidates)

	if s.events != nil {
		s.events.Emit(events.ProposalGenerated, "portfolio", map[string]interface{}{
			"horizon":    string(req.Horizon),
			"amount":     req.Amount,
			"target_sri": req.TargetSRI,
			"num_funds":  proposal.NumFunds,
			"avg_sri":    proposal.AverageSRI,
		})
	}

	return proposal, nil
}

// buildCandidates joins ranking entries with catalog details. Funds missing
// from the catalog are skipped with a warning rather than failing the
// proposal.
func (s *Service) buildCandidates(output *trunk.TrunkOutput, eligible []trunk.RankingEntry) ([]Candidate, error) {
	if len(eligible) == 0 {
		return nil, nil
	}

	isins := make([]string, 0, len(eligible))
	for _, entry := range eligible {
		isins = append(isins, entry.FundID)
	}

	funds, err := s.catalog.FundsByISIN(isins)
	if err != nil {
		return nil, fmt.Errorf("failed to load fund details: %w", err)
	}

	candidates := make([]Candidate, 0, len(eligible))
	for _, entry := range eligible {
		fund, ok := funds[entry.FundID]
		if !ok {
			s.log.Warn().Str("isin", entry.FundID).Msg("Scored fund missing from catalog, skipping")
			continue
		}

		confidence := 0.0
		if composite, ok := trunk.CompositeByFundID(output, entry.FundID); ok {
			confidence = averageConfidence(composite.ConfidenceByBrain)
		}

		candidates = append(candidates, Candidate{
			ISIN:           entry.FundID,
			Name:           fund.Name,
			AssetClass:     fund.AssetClass,
			SRI:            entry.SRI,
			CompositeScore: entry.CompositeScore,
			Confidence:     confidence,
			Priority:       fund.Priority,
			Reasoning:      fund.Reasoning,
		})
	}

	return candidates, nil
}

func averageConfidence(byBrain map[string]float64) float64 {
	if len(byBrain) == 0 {
		return 0
	}

	total := 0.0
	for _, c := range byBrain {
		total += c
	}
	return formulas.Round2(total / float64(len(byBrain)))
}
