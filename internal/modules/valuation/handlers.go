package valuation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles valuation HTTP requests
type Handler struct {
	repo    *Repository
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(repo *Repository, service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		repo:    repo,
		service: service,
		log:     log.With().Str("handler", "valuation").Logger(),
	}
}

// HandleGetPortfolio handles GET /{accountID}/portfolio - the persisted state
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	state, err := h.repo.GetState(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get portfolio state")
		http.Error(w, "Failed to retrieve portfolio", http.StatusInternalServerError)
		return
	}
	if state == nil {
		http.Error(w, "Portfolio not valued yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

// HandleRunBatch handles POST /jobs/valuation/run - run batches until the
// day's pass converges
func (h *Handler) HandleRunBatch(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RunToConvergence(context.Background())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual valuation run failed")
		http.Error(w, "Valuation run failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
