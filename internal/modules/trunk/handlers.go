package trunk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Refresher runs a fresh aggregation pass when no cached one exists.
// Implemented by the brains rescore service.
type Refresher interface {
	Rescore() (*TrunkOutput, error)
}

// Handler handles trunk HTTP requests
type Handler struct {
	engine    *Engine
	refresher Refresher
	log       zerolog.Logger
}

// NewHandler creates a new trunk handler
func NewHandler(engine *Engine, refresher Refresher, log zerolog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		refresher: refresher,
		log:       log.With().Str("handler", "trunk").Logger(),
	}
}

// ensureOutput returns the cached pass, running a fresh one if needed
func (h *Handler) ensureOutput() (*TrunkOutput, error) {
	if output := h.engine.LastOutput(); output != nil {
		return output, nil
	}

	if h.refresher == nil {
		return nil, fmt.Errorf("no aggregation pass available")
	}

	return h.refresher.Rescore()
}

// HandleGetRanking returns the global ranking, optionally filtered
// GET /api/trunk/ranking?top_n=100&min_score=60
func (h *Handler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	topN := 100
	if v := r.URL.Query().Get("top_n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "top_n must be a positive integer")
			return
		}
		topN = n
	}

	var minScore *float64
	if v := r.URL.Query().Get("min_score"); v != "" {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil || s < 0 || s > 100 {
			h.writeError(w, http.StatusBadRequest, "min_score must be between 0 and 100")
			return
		}
		minScore = &s
	}

	output, err := h.ensureOutput()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, TopRanking(output, topN, minScore))
}

// HandleFundsForAllocation returns ranking entries inside the SRI window
// GET /api/trunk/funds-for-allocation?sri_target=4&tolerance=0.5
func (h *Handler) HandleFundsForAllocation(w http.ResponseWriter, r *http.Request) {
	sriTarget := 4
	if v := r.URL.Query().Get("sri_target"); v != "" {
		t, err := strconv.Atoi(v)
		if err != nil || t < 1 || t > 7 {
			h.writeError(w, http.StatusBadRequest, "sri_target must be between 1 and 7")
			return
		}
		sriTarget = t
	}

	tolerance := 0.5
	if v := r.URL.Query().Get("tolerance"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 3 {
			h.writeError(w, http.StatusBadRequest, "tolerance must be between 0 and 3")
			return
		}
		tolerance = t
	}

	output, err := h.ensureOutput()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	eligible := FundsForAllocation(output, sriTarget, tolerance)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sri_target": sriTarget,
		"tolerance":  tolerance,
		"count":      len(eligible),
		"funds":      eligible,
	})
}

// HandleListBrains returns the brain registry
// GET /api/trunk/brains?active_only=true
func (h *Handler) HandleListBrains(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	if activeOnly {
		h.writeJSON(w, http.StatusOK, h.engine.Registry().Active())
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.Registry().All())
}

// HandleStats returns statistics about the last aggregation pass
// GET /api/trunk/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	output, err := h.ensureOutput()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"pass_id":                output.PassID,
		"timestamp":              output.Timestamp,
		"total_funds":            output.TotalFunds,
		"active_brains":          output.ActiveBrains,
		"brain_weights":          output.WeightsUsed,
		"consensus_distribution": ConsensusStats(output),
		"contradiction_count":    len(output.Contradictions),
	})
}

// HandleGetComposite returns composite detail for one fund
// GET /api/trunk/composite/{fund_id}
func (h *Handler) HandleGetComposite(w http.ResponseWriter, r *http.Request) {
	fundID := chi.URLParam(r, "fund_id")
	if fundID == "" {
		h.writeError(w, http.StatusBadRequest, "Fund id is required")
		return
	}

	output, err := h.ensureOutput()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	composite, ok := CompositeByFundID(output, fundID)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("Fund %s not found", fundID))
		return
	}

	h.writeJSON(w, http.StatusOK, composite)
}

// HandleGetContradictions returns the contradiction log of the last pass
// GET /api/trunk/contradictions
func (h *Handler) HandleGetContradictions(w http.ResponseWriter, r *http.Request) {
	output, err := h.ensureOutput()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":          len(output.Contradictions),
		"contradictions": output.Contradictions,
	})
}

// HandleGetWeights returns current weights and their history
// GET /api/trunk/weights
func (h *Handler) HandleGetWeights(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"weights": h.engine.Weights().Get(),
		"history": h.engine.Weights().History(),
	})
}

// HandleUpdateWeights updates brain weights
// POST /api/trunk/weights {"weights": {"fundamental_v1": 0.6, ...}, "reason": "..."}
func (h *Handler) HandleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weights map[string]float64 `json:"weights"`
		Reason  string             `json:"reason"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Weights) == 0 {
		h.writeError(w, http.StatusBadRequest, "No weights provided")
		return
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	if err := h.engine.UpdateWeights(req.Weights, req.Reason); err != nil {
		if errors.Is(err, ErrInvalidWeights) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"weights": h.engine.Weights().Get(),
		"reason":  req.Reason,
	})
}

// HandleActivateBrain activates a brain
// POST /api/trunk/brains/{brain_id}/activate
func (h *Handler) HandleActivateBrain(w http.ResponseWriter, r *http.Request) {
	h.handleSetBrainActive(w, r, true)
}

// HandleDeactivateBrain deactivates a brain
// POST /api/trunk/brains/{brain_id}/deactivate
func (h *Handler) HandleDeactivateBrain(w http.ResponseWriter, r *http.Request) {
	h.handleSetBrainActive(w, r, false)
}

func (h *Handler) handleSetBrainActive(w http.ResponseWriter, r *http.Request, active bool) {
	brainID := chi.URLParam(r, "brain_id")
	if brainID == "" {
		h.writeError(w, http.StatusBadRequest, "Brain id is required")
		return
	}

	var err error
	if active {
		err = h.engine.ActivateBrain(brainID)
	} else {
		err = h.engine.DeactivateBrain(brainID)
	}

	if err != nil {
		if errors.Is(err, ErrBrainNotFound) {
			h.writeError(w, http.StatusNotFound, fmt.Sprintf("Brain %s not found", brainID))
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"brain_id": brainID,
		"state":    state,
	})
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
