package trunk

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/events"
	"github.com/aristath/fund-trader/pkg/formulas"
)

// brainScore is one brain's (score, confidence) pair for a fund
type brainScore struct {
	score      float64
	confidence float64
}

// fundTable is the aggregated per-fund view of all brain outputs. Fund order
// is first-seen order across brain outputs, so equal composite scores rank
// deterministically.
type fundTable struct {
	order  []string
	scores map[string]map[string]brainScore
}

// ActivationStore persists brain activation changes. Satisfied by
// RegistryRepository.
type ActivationStore interface {
	SetActive(brainID string, active bool) error
}

// Engine is the central orchestrator. It aggregates brain outputs, computes
// consensus and composite scores per fund, and produces the global ranking.
//
// There is deliberately no per-brain logic here: brains are opaque score
// sources identified by id, and new brains plug in without touching this
// code.
type Engine struct {
	registry    *Registry
	weights     *WeightStore
	consensus   *ConsensusAnalyzer
	calculator  *CompositeCalculator
	activations ActivationStore
	events      *events.Manager
	log         zerolog.Logger

	mu         sync.RWMutex
	sriByFund  map[string]int
	lastOutput *TrunkOutput
}

// NewEngine creates a new trunk engine. activations and events may be nil.
func NewEngine(registry *Registry, weights *WeightStore, activations ActivationStore, eventMgr *events.Manager, log zerolog.Logger) *Engine {
	return &Engine{
		registry:    registry,
		weights:     weights,
		consensus:   NewConsensusAnalyzer(),
		calculator:  NewCompositeCalculator(),
		activations: activations,
		events:      eventMgr,
		log:         log.With().Str("service", "trunk_engine").Logger(),
		sriByFund:   make(map[string]int),
	}
}

// Registry returns the brain registry for external management
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Weights returns the weight store for external management
func (e *Engine) Weights() *WeightStore {
	return e.weights
}

// SetFundSRIMap replaces the fund -> risk indicator mapping used to annotate
// composites. Funds missing from the map default to SRI 4.
func (e *Engine) SetFundSRIMap(sriByFund map[string]int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sriByFund = make(map[string]int, len(sriByFund))
	for id, sri := range sriByFund {
		e.sriByFund[id] = sri
	}
}

// UpdateWeights applies new brain weights and invalidates the cached pass
func (e *Engine) UpdateWeights(newWeights map[string]float64, reason string) error {
	if err := e.weights.Update(newWeights, reason); err != nil {
		return err
	}

	e.Invalidate()

	if e.events != nil {
		e.events.Emit(events.WeightsUpdated, "trunk", map[string]interface{}{
			"weights": newWeights,
			"reason":  reason,
		})
	}
	return nil
}

// ActivateBrain activates a brain and invalidates the cached pass
func (e *Engine) ActivateBrain(brainID string) error {
	if err := e.registry.Activate(brainID); err != nil {
		return err
	}
	e.persistActivation(brainID, true)
	e.Invalidate()

	if e.events != nil {
		e.events.Emit(events.BrainActivated, "trunk", map[string]interface{}{"brain_id": brainID})
	}
	return nil
}

// DeactivateBrain deactivates a brain and invalidates the cached pass
func (e *Engine) DeactivateBrain(brainID string) error {
	if err := e.registry.Deactivate(brainID); err != nil {
		return err
	}
	e.persistActivation(brainID, false)
	e.Invalidate()

	if e.events != nil {
		e.events.Emit(events.BrainDeactivated, "trunk", map[string]interface{}{"brain_id": brainID})
	}
	return nil
}

// persistActivation saves the activation flag. The in-memory registry is the
// source of truth during a run, so persistence failures are logged, not fatal.
func (e *Engine) persistActivation(brainID string, active bool) {
	if e.activations == nil {
		return
	}
	if err := e.activations.SetActive(brainID, active); err != nil {
		e.log.Error().Err(err).Str("brain_id", brainID).Msg("Failed to persist brain activation")
	}
}

// Invalidate drops the cached last pass. Callers re-run ProcessBrainOutputs
// to refresh; passes are recomputed whole, never patched incrementally.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastOutput = nil
}

// LastOutput returns the most recent completed pass, or nil
func (e *Engine) LastOutput() *TrunkOutput {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastOutput
}

// ProcessBrainOutputs runs one full aggregation pass:
//
//  1. Aggregate brain outputs into a per-fund score table
//  2. Normalize current weights against the active brain set
//  3. Per fund: consensus, contradictions, composite score, SRI annotation
//  4. Stable-sort by composite score descending into the global ranking
//
// A failure on a single fund never aborts the pass; the fund is assigned the
// neutral composite and logged.
func (e *Engine) ProcessBrainOutputs(brainOutputs []BrainOutput) *TrunkOutput {
	started := time.Now()

	table := aggregateOutputs(brainOutputs)

	activeIDs := e.registry.ActiveBrainIDs()
	weights := e.weights.NormalizeForActive(activeIDs)

	e.mu.RLock()
	sriByFund := e.sriByFund
	e.mu.RUnlock()

	composites := make([]FundComposite, 0, len(table.order))
	var contradictions []ContradictionRecord

	for _, fundID := range table.order {
		composite, records := e.processFund(fundID, table.scores[fundID], weights, sriByFund)
		composites = append(composites, composite)
		contradictions = append(contradictions, records...)
	}

	// Stable sort keeps input order for equal composite scores
	sorted := make([]FundComposite, len(composites))
	copy(sorted, composites)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompositeScore > sorted[j].CompositeScore
	})

	ranking := make([]RankingEntry, 0, len(sorted))
	for i, fc := range sorted {
		ranking = append(ranking, RankingEntry{
			FundID:         fc.FundID,
			CompositeScore: fc.CompositeScore,
			SRI:            fc.SRI,
			Rank:           i + 1,
		})
	}

	activeList := make([]string, 0, len(activeIDs))
	for id := range activeIDs {
		activeList = append(activeList, id)
	}
	sort.Strings(activeList)

	output := &TrunkOutput{
		PassID:          uuid.New().String(),
		Timestamp:       time.Now().UTC(),
		CompositeScores: composites,
		GlobalRanking:   ranking,
		WeightsUsed:     weights,
		ActiveBrains:    activeList,
		TotalFunds:      len(composites),
		Contradictions:  contradictions,
	}

	e.mu.Lock()
	e.lastOutput = output
	e.mu.Unlock()

	if len(contradictions) > 0 {
		e.log.Warn().
			Int("count", len(contradictions)).
			Msg("Detected contradictions between brains")

		if e.events != nil {
			e.events.Emit(events.ContradictionDetected, "trunk", map[string]interface{}{
				"count":   len(contradictions),
				"pass_id": output.PassID,
			})
		}
	}

	e.log.Info().
		Str("pass_id", output.PassID).
		Int("funds", output.TotalFunds).
		Int("brains", len(activeList)).
		Dur("duration_ms", time.Since(started)).
		Msg("Aggregation pass complete")

	return output
}

// processFund computes consensus, contradictions and the composite for one
// fund. Panics are contained here so one malformed record cannot fail the
// whole ranking.
func (e *Engine) processFund(
	fundID string,
	brainScores map[string]brainScore,
	weights map[string]float64,
	sriByFund map[string]int,
) (composite FundComposite, records []ContradictionRecord) {
	sri := 4
	if s, ok := sriByFund[fundID]; ok {
		sri = s
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("fund_id", fundID).
				Interface("panic", r).
				Msg("Fund scoring failed, assigning neutral composite")

			composite = FundComposite{
				FundID:            fundID,
				CompositeScore:    NeutralScore,
				ScoresByBrain:     map[string]float64{},
				ConfidenceByBrain: map[string]float64{},
				ConsensusSigma:    0,
				ConsensusLevel:    ConsensusStrong,
				SRI:               sri,
			}
			records = nil
		}
	}()

	scores := make(map[string]float64, len(brainScores))
	confidences := make(map[string]float64, len(brainScores))
	for brainID, bs := range brainScores {
		scores[brainID] = bs.score
		confidences[brainID] = bs.confidence
	}

	sigma, level := e.consensus.ComputeConsensus(scores)

	records = e.consensus.DetectContradictions(
		scores, confidences,
		ContradictionDiffThreshold, ContradictionMinConfidence,
	)
	for i := range records {
		records[i].FundID = fundID
	}

	score := e.calculator.Calculate(scores, confidences, weights)

	composite = FundComposite{
		FundID:            fundID,
		CompositeScore:    formulas.Round2(score),
		ScoresByBrain:     scores,
		ConfidenceByBrain: confidences,
		ConsensusSigma:    formulas.Round2(sigma),
		ConsensusLevel:    level,
		SRI:               sri,
	}
	return composite, records
}

// aggregateOutputs builds the per-fund table: fund -> brain -> (score, conf).
// A fund missing from a brain's output simply has no entry for that brain.
func aggregateOutputs(brainOutputs []BrainOutput) fundTable {
	table := fundTable{
		scores: make(map[string]map[string]brainScore),
	}

	for _, output := range brainOutputs {
		for _, entry := range output.FundScores {
			byBrain, ok := table.scores[entry.FundID]
			if !ok {
				byBrain = make(map[string]brainScore)
				table.scores[entry.FundID] = byBrain
				table.order = append(table.order, entry.FundID)
			}
			byBrain[output.BrainID] = brainScore{
				score:      entry.Score,
				confidence: entry.Confidence,
			}
		}
	}

	return table
}

// TopRanking filters a completed pass by minimum score, then truncates to the
// top N. Rank order from the pass is preserved; nothing is recomputed.
// topN <= 0 means no limit.
func TopRanking(output *TrunkOutput, topN int, minScore *float64) []RankingEntry {
	if output == nil {
		return nil
	}

	ranking := output.GlobalRanking

	if minScore != nil {
		filtered := make([]RankingEntry, 0, len(ranking))
		for _, entry := range ranking {
			if entry.CompositeScore >= *minScore {
				filtered = append(filtered, entry)
			}
		}
		ranking = filtered
	}

	if topN > 0 && len(ranking) > topN {
		ranking = ranking[:topN]
	}

	return ranking
}

// FundsForAllocation returns the ranking entries whose risk indicator falls
// in the inclusive window around sriTarget. The upper bound rounds the
// tolerance up by adding 0.99 before truncating, matching the established
// allocation interface.
func FundsForAllocation(output *TrunkOutput, sriTarget int, tolerance float64) []RankingEntry {
	if output == nil {
		return nil
	}

	sriMin := int(float64(sriTarget) - tolerance)
	if sriMin < 1 {
		sriMin = 1
	}
	sriMax := int(float64(sriTarget) + tolerance + 0.99)
	if sriMax > 7 {
		sriMax = 7
	}

	var eligible []RankingEntry
	for _, entry := range output.GlobalRanking {
		if entry.SRI >= sriMin && entry.SRI <= sriMax {
			eligible = append(eligible, entry)
		}
	}

	return eligible
}

// ConsensusStats counts funds per consensus level for a completed pass
func ConsensusStats(output *TrunkOutput) map[ConsensusLevel]int {
	stats := map[ConsensusLevel]int{
		ConsensusStrong:     0,
		ConsensusModerate:   0,
		ConsensusWeak:       0,
		ConsensusDivergence: 0,
	}

	if output == nil {
		return stats
	}

	for _, fc := range output.CompositeScores {
		stats[fc.ConsensusLevel]++
	}
	return stats
}

// CompositeByFundID looks up the composite detail for one fund in a pass
func CompositeByFundID(output *TrunkOutput, fundID string) (FundComposite, bool) {
	if output == nil {
		return FundComposite{}, false
	}

	for _, fc := range output.CompositeScores {
		if fc.FundID == fundID {
			return fc, true
		}
	}
	return FundComposite{}, false
}
