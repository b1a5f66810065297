package brains

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
	"github.com/aristath/fund-trader/internal/events"
	"github.com/aristath/fund-trader/internal/modules/trunk"
)

// FundSource loads the scorable fund universe. Implemented by the universe
// module.
type FundSource interface {
	ActiveFunds() ([]domain.Fund, error)
}

// RescoreService runs full scoring passes: it loads the fund universe, runs
// every active brain over it, and feeds the outputs into the trunk engine.
// It implements trunk.Refresher.
type RescoreService struct {
	engine *trunk.Engine
	repo   *trunk.RegistryRepository
	funds  FundSource
	events *events.Manager
	log    zerolog.Logger

	mu     sync.Mutex
	brains map[string]Brain
}

// NewRescoreService creates a new rescore service. repo and eventMgr may be
// nil in tests.
func NewRescoreService(
	engine *trunk.Engine,
	repo *trunk.RegistryRepository,
	funds FundSource,
	eventMgr *events.Manager,
	log zerolog.Logger,
) *RescoreService {
	return &RescoreService{
		engine: engine,
		repo:   repo,
		funds:  funds,
		events: eventMgr,
		log:    log.With().Str("service", "rescore").Logger(),
		brains: make(map[string]Brain),
	}
}

// RegisterBrain registers a brain implementation with the trunk registry and
// persists the registration.
func (s *RescoreService) RegisterBrain(brain Brain) error {
	reg := brain.Registration()

	s.mu.Lock()
	s.brains[reg.BrainID] = brain
	s.mu.Unlock()

	s.engine.Registry().Register(reg)

	if s.repo != nil {
		persisted := reg
		persisted.IsActive = true
		if persisted.Version == "" {
			persisted.Version = "1.0.0"
		}
		if err := s.repo.SaveRegistration(persisted); err != nil {
			return fmt.Errorf("failed to persist brain registration: %w", err)
		}
	}

	if s.events != nil {
		s.events.Emit(events.BrainRegistered, "brains", map[string]interface{}{
			"brain_id": reg.BrainID,
			"version":  reg.Version,
		})
	}

	return nil
}

// Rescore runs one full scoring pass. Passes are serialized; a second caller
// blocks until the in-flight pass finishes, then runs its own.
func (s *RescoreService) Rescore() (*trunk.TrunkOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()

	if s.events != nil {
		s.events.Emit(events.RescoreStart, "brains", nil)
	}

	funds, err := s.funds.ActiveFunds()
	if err != nil {
		if s.events != nil {
			s.events.EmitError("brains", err, map[string]interface{}{"stage": "load_funds"})
		}
		return nil, fmt.Errorf("failed to load fund universe: %w", err)
	}

	sriByFund := make(map[string]int, len(funds))
	for _, fund := range funds {
		sriByFund[fund.ISIN] = domain.ClampSRI(fund.SRI)
	}
	s.engine.SetFundSRIMap(sriByFund)

	outputs := s.runActiveBrains(funds)

	result := s.engine.ProcessBrainOutputs(outputs)

	if s.events != nil {
		s.events.Emit(events.RescoreComplete, "brains", map[string]interface{}{
			"pass_id":     result.PassID,
			"total_funds": result.TotalFunds,
			"brains":      len(outputs),
			"duration_ms": time.Since(started).Milliseconds(),
		})
	}

	s.log.Info().
		Str("pass_id", result.PassID).
		Int("funds", result.TotalFunds).
		Int("brains", len(outputs)).
		Dur("duration", time.Since(started)).
		Msg("Rescore pass complete")

	return result, nil
}

// runActiveBrains runs every active registered brain over the universe. A
// registration without an installed implementation is skipped with a warning;
// a panicking brain is skipped too so one brain cannot take down the pass.
func (s *RescoreService) runActiveBrains(funds []domain.Fund) []trunk.BrainOutput {
	active := s.engine.Registry().Active()

	outputs := make([]trunk.BrainOutput, 0, len(active))
	for _, reg := range active {
		brain, ok := s.brains[reg.BrainID]
		if !ok {
			s.log.Warn().
				Str("brain_id", reg.BrainID).
				Msg("Active brain has no installed implementation, skipping")
			continue
		}

		if output, ok := s.runBrain(brain, reg.BrainID, funds); ok {
			outputs = append(outputs, output)
		}
	}

	return outputs
}

func (s *RescoreService) runBrain(brain Brain, brainID string, funds []domain.Fund) (output trunk.BrainOutput, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("brain_id", brainID).
				Interface("panic", r).
				Msg("Brain panicked during analysis, skipping its output")
			ok = false
		}
	}()

	started := time.Now()
	output = brain.AnalyzeFunds(funds)

	s.log.Debug().
		Str("brain_id", brainID).
		Int("scores", len(output.FundScores)).
		Dur("duration", time.Since(started)).
		Msg("Brain analysis complete")

	return output, true
}
