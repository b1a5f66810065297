package universe

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/domain"
)

// Handler handles fund universe HTTP requests
type Handler struct {
	service *Service
	repo    *FundRepository
	log     zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(service *Service, repo *FundRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		repo:    repo,
		log:     log.With().Str("handler", "universe").Logger(),
	}
}

// HandleListFunds returns a filtered page of the fund catalog
// GET /api/funds?asset_class=actions&min_sri=2&max_sri=5&search=world&limit=50&offset=0
func (h *Handler) HandleListFunds(w http.ResponseWriter, r *http.Request) {
	filter := FundFilter{Limit: 50}
	query := r.URL.Query()

	if v := query.Get("asset_class"); v != "" {
		filter.AssetClass = domain.AssetClass(v)
	}
	if v := query.Get("min_sri"); v != "" {
		sri, err := strconv.Atoi(v)
		if err != nil || sri < 1 || sri > 7 {
			h.writeError(w, http.StatusBadRequest, "min_sri must be between 1 and 7")
			return
		}
		filter.MinSRI = sri
	}
	if v := query.Get("max_sri"); v != "" {
		sri, err := strconv.Atoi(v)
		if err != nil || sri < 1 || sri > 7 {
			h.writeError(w, http.StatusBadRequest, "max_sri must be between 1 and 7")
			return
		}
		filter.MaxSRI = sri
	}
	filter.Search = query.Get("search")

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 500 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		filter.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			h.writeError(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		filter.Offset = offset
	}

	funds, total, err := h.repo.ListFunds(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Fund listing failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":  total,
		"count":  len(funds),
		"offset": filter.Offset,
		"funds":  funds,
	})
}

// HandleGetFund returns one fund with its metrics
// GET /api/funds/{isin}
func (h *Handler) HandleGetFund(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")
	if isin == "" {
		h.writeError(w, http.StatusBadRequest, "ISIN is required")
		return
	}

	fund, err := h.repo.FundByISIN(isin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(w, http.StatusNotFound, fmt.Sprintf("Fund %s not found", isin))
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if metrics, err := h.service.provider.FundMetrics(isin); err == nil {
		fund.Metrics = metrics
	}

	h.writeJSON(w, http.StatusOK, fund)
}

// HandleGetHistory returns NAV history for a fund
// GET /api/funds/{isin}/history?days=252
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")
	if isin == "" {
		h.writeError(w, http.StatusBadRequest, "ISIN is required")
		return
	}

	days := 252
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	points, err := h.service.NavHistory(isin, days)
	if err != nil {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("No NAV history for %s", isin))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"isin":   isin,
		"count":  len(points),
		"points": points,
	})
}

// HandleImportCatalog triggers a catalog import
// POST /api/funds/import
func (h *Handler) HandleImportCatalog(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ImportCatalog()
	if err != nil {
		h.log.Error().Err(err).Msg("Catalog import failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"stats":  stats,
	})
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
