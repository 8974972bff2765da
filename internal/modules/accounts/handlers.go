package accounts

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/events"
)

// Handler handles account HTTP requests
type Handler struct {
	repo   *Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(repo *Repository, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		events: eventManager,
		log:    log.With().Str("handler", "accounts").Logger(),
	}
}

type createAccountRequest struct {
	DisplayName  string  `json:"display_name"`
	StartingCash float64 `json:"starting_cash"`
}

// HandleCreateAccount handles POST / - register a new account
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.DisplayName == "" {
		http.Error(w, "display_name is required", http.StatusBadRequest)
		return
	}
	if req.StartingCash <= 0 {
		http.Error(w, "starting_cash must be positive", http.StatusBadRequest)
		return
	}

	account, err := h.repo.Create(&Account{
		DisplayName:   req.DisplayName,
		StartingCash:  req.StartingCash,
		LastLoginDate: time.Now().Format("2006-01-02"),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create account")
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	h.events.Emit(events.AccountCreated, "accounts", map[string]interface{}{
		"account_id": account.ID,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}

// HandleGetAccount handles GET /{accountID}
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	account, err := h.repo.GetByID(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get account")
		http.Error(w, "Failed to retrieve account", http.StatusInternalServerError)
		return
	}
	if account == nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

// HandleTouchLogin handles POST /{accountID}/login - stamp last login date
func (h *Handler) HandleTouchLogin(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	if err := h.repo.TouchLogin(accountID, time.Now().Format("2006-01-02")); err != nil {
		h.log.Warn().Err(err).Str("account_id", accountID).Msg("Failed to touch login")
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
