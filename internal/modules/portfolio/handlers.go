package portfolio

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *Service
	policy  HorizonPolicy
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *Service, policy HorizonPolicy, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		policy:  policy,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleSuggest generates a portfolio proposal
// POST /api/portfolio/suggest
// {"amount": 10000, "horizon": "long", "target_sri": 4, "sri_tolerance": 0.5}
func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	var req ProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Amount <= 0 {
		h.writeError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}

	switch req.Horizon {
	case domain.HorizonShort, domain.HorizonMedium, domain.HorizonLong:
	case "":
		req.Horizon = domain.HorizonMedium
	default:
		h.writeError(w, http.StatusBadRequest, "Horizon must be short, medium or long")
		return
	}

	if req.TargetSRI == 0 {
		req.TargetSRI = 4
	}
	if req.TargetSRI < 1 || req.TargetSRI > 7 {
		h.writeError(w, http.StatusBadRequest, "Target risk indicator must be between 1 and 7")
		return
	}

	if req.SRITolerance == 0 {
		req.SRITolerance = 0.5
	}
	if req.SRITolerance < 0 || req.SRITolerance > 3 {
		h.writeError(w, http.StatusBadRequest, "Risk tolerance must be between 0 and 3")
		return
	}

	proposal, err := h.service.GenerateProposal(req)
	if err != nil {
		h.log.Error().Err(err).Msg("Proposal generation failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, proposal)
}

// HandleGetPolicy returns the active horizon policy
// GET /api/portfolio/policy
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.policy.Targets)
}

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
