package trunk

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidWeights is returned when a supplied weight set cannot be
// renormalized (e.g. all weights are zero).
var ErrInvalidWeights = errors.New("invalid weights: sum is zero")

// weightTolerance is how far from 1.0 a supplied weight sum may be before the
// store renormalizes it.
const weightTolerance = 0.01

// WeightArchiver persists weight snapshots. Satisfied by RegistryRepository.
type WeightArchiver interface {
	AppendWeightSnapshot(WeightSnapshot) error
}

// WeightStore holds the current brain weights and an append-only history of
// weight changes. A single writer (the mutex) guarantees an aggregation pass
// never reads a half-updated weight set.
type WeightStore struct {
	mu       sync.RWMutex
	weights  map[string]float64
	history  []WeightSnapshot
	archiver WeightArchiver
	log      zerolog.Logger
}

// NewWeightStore creates a weight store with the given initial weights.
// archiver may be nil, in which case history is kept in memory only.
func NewWeightStore(initial map[string]float64, archiver WeightArchiver, log zerolog.Logger) *WeightStore {
	weights := make(map[string]float64, len(initial))
	for id, w := range initial {
		weights[id] = w
	}

	return &WeightStore{
		weights:  weights,
		archiver: archiver,
		log:      log.With().Str("service", "weight_store").Logger(),
	}
}

// Get returns a copy of the current weights
func (s *WeightStore) Get() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyWeights(s.weights)
}

// Update replaces the current weights. The supplied weights must sum to 1.0
// within tolerance; otherwise they are renormalized by dividing by their sum
// and a warning is logged. An all-zero weight set is rejected. The previous
// weight set is archived with reason "archived" before the new one is
// recorded with the supplied reason.
func (s *WeightStore) Update(newWeights map[string]float64, reason string) error {
	total := 0.0
	for _, w := range newWeights {
		total += w
	}

	if total == 0 {
		return ErrInvalidWeights
	}

	applied := copyWeights(newWeights)
	if math.Abs(total-1.0) > weightTolerance {
		s.log.Warn().Float64("sum", total).Msg("Weights do not sum to 1.0, renormalizing")
		for id, w := range applied {
			applied[id] = w / total
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	// Archive old state
	if len(s.weights) > 0 {
		s.appendSnapshot(WeightSnapshot{
			Weights:   copyWeights(s.weights),
			Reason:    "archived",
			UpdatedAt: now,
		})
	}

	s.weights = applied

	s.appendSnapshot(WeightSnapshot{
		Weights:   copyWeights(applied),
		Reason:    reason,
		UpdatedAt: now,
	})

	s.log.Info().
		Interface("weights", applied).
		Str("reason", reason).
		Msg("Weights updated")

	return nil
}

// History returns a copy of the weight change history, oldest first
func (s *WeightStore) History() []WeightSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]WeightSnapshot, len(s.history))
	copy(out, s.history)
	return out
}

// NormalizeForActive restricts the current weights to the given brain id set
// and rescales them to sum to 1. A zero-sum restriction falls back to equal
// weighting over the given set; an empty set yields an empty map.
func (s *WeightStore) NormalizeForActive(activeIDs map[string]bool) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(activeIDs) == 0 {
		return map[string]float64{}
	}

	active := make(map[string]float64)
	total := 0.0
	for id, w := range s.weights {
		if activeIDs[id] {
			active[id] = w
			total += w
		}
	}

	if total == 0 {
		equal := 1.0 / float64(len(activeIDs))
		normalized := make(map[string]float64, len(activeIDs))
		for id := range activeIDs {
			normalized[id] = equal
		}
		return normalized
	}

	normalized := make(map[string]float64, len(active))
	for id, w := range active {
		normalized[id] = w / total
	}
	return normalized
}

// appendSnapshot records a snapshot in memory and, when an archiver is
// configured, persists it. Persistence failures are logged, not fatal.
func (s *WeightStore) appendSnapshot(snap WeightSnapshot) {
	s.history = append(s.history, snap)

	if s.archiver != nil {
		if err := s.archiver.AppendWeightSnapshot(snap); err != nil {
			s.log.Error().Err(err).Msg("Failed to persist weight snapshot")
		}
	}
}

func copyWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for id, w := range weights {
		out[id] = w
	}
	return out
}
