package trunk

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// ErrBrainNotFound is returned when an operation references an unknown brain id
var ErrBrainNotFound = errors.New("brain not found")

// Registry tracks registered brains and their activation state. Brains can be
// added and removed at runtime; the aggregation code never special-cases a
// brain by id.
type Registry struct {
	mu     sync.RWMutex
	brains map[string]BrainRegistration
	log    zerolog.Logger
}

// NewRegistry creates a new brain registry
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		brains: make(map[string]BrainRegistration),
		log:    log.With().Str("service", "brain_registry").Logger(),
	}
}

// Register adds or overwrites a brain registration. Newly registered brains
// are active. Re-registering an existing id overwrites its entry.
func (r *Registry) Register(reg BrainRegistration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.brains[reg.BrainID]; exists {
		r.log.Warn().Str("brain_id", reg.BrainID).Msg("Brain already registered, overwriting")
	}

	reg.IsActive = true
	if reg.Version == "" {
		reg.Version = "1.0.0"
	}
	r.brains[reg.BrainID] = reg

	r.log.Info().Str("brain_id", reg.BrainID).Msg("Brain registered and activated")
}

// Activate marks a brain as active. Returns ErrBrainNotFound for unknown ids.
func (r *Registry) Activate(brainID string) error {
	return r.setActive(brainID, true)
}

// Deactivate marks a brain as inactive. The brain stays registered. Returns
// ErrBrainNotFound for unknown ids.
func (r *Registry) Deactivate(brainID string) error {
	return r.setActive(brainID, false)
}

func (r *Registry) setActive(brainID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.brains[brainID]
	if !ok {
		return ErrBrainNotFound
	}

	reg.IsActive = active
	r.brains[brainID] = reg

	if active {
		r.log.Info().Str("brain_id", brainID).Msg("Brain activated")
	} else {
		r.log.Info().Str("brain_id", brainID).Msg("Brain deactivated")
	}
	return nil
}

// Get returns the registration for a brain id
func (r *Registry) Get(brainID string) (BrainRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.brains[brainID]
	return reg, ok
}

// All returns all registered brains, sorted by id for stable output
func (r *Registry) All() []BrainRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]BrainRegistration, 0, len(r.brains))
	for _, reg := range r.brains {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BrainID < out[j].BrainID })
	return out
}

// Active returns only active brains, sorted by id
func (r *Registry) Active() []BrainRegistration {
	all := r.All()
	out := make([]BrainRegistration, 0, len(all))
	for _, reg := range all {
		if reg.IsActive {
			out = append(out, reg)
		}
	}
	return out
}

// ActiveBrainIDs returns the set of active brain ids
func (r *Registry) ActiveBrainIDs() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[string]bool)
	for id, reg := range r.brains {
		if reg.IsActive {
			ids[id] = true
		}
	}
	return ids
}

// DefaultWeights returns the default weights of active brains, normalized to
// sum to 1.0. When every active brain has default weight 0 the weights fall
// back to an equal split.
func (r *Registry) DefaultWeights() map[string]float64 {
	active := r.Active()
	if len(active) == 0 {
		return map[string]float64{}
	}

	total := 0.0
	for _, reg := range active {
		total += reg.DefaultWeight
	}

	weights := make(map[string]float64, len(active))
	if total == 0 {
		equal := 1.0 / float64(len(active))
		for _, reg := range active {
			weights[reg.BrainID] = equal
		}
		return weights
	}

	for _, reg := range active {
		weights[reg.BrainID] = reg.DefaultWeight / total
	}
	return weights
}
