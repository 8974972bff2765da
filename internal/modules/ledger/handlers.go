package ledger

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/domain"
	"github.com/stockleague/engine/internal/events"
)

// AccountChecker reports whether an account exists
type AccountChecker interface {
	Exists(accountID string) (bool, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	repo     *Repository
	accounts AccountChecker
	events   *events.Manager
	log      zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(repo *Repository, accounts AccountChecker, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		accounts: accounts,
		events:   eventManager,
		log:      log.With().Str("handler", "ledger").Logger(),
	}
}

type recordTransactionRequest struct {
	Date       string  `json:"date"`
	Symbol     string  `json:"symbol"`
	SymbolType string  `json:"symbol_type"`
	Side       string  `json:"side"`
	Units      float64 `json:"units"`
	UnitPrice  float64 `json:"unit_price"`
	Fees       float64 `json:"fees"`
}

// HandleRecordTransaction handles POST /{accountID}/transactions
func (h *Handler) HandleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	exists, err := h.accounts.Exists(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to check account")
		http.Error(w, "Failed to record transaction", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}

	var req recordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	side, err := domain.TransactionSideFromString(req.Side)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}
	if req.Units <= 0 {
		http.Error(w, "units must be positive", http.StatusBadRequest)
		return
	}
	if req.UnitPrice < 0 || req.Fees < 0 {
		http.Error(w, "unit_price and fees must not be negative", http.StatusBadRequest)
		return
	}
	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if req.SymbolType == "" {
		req.SymbolType = "stock"
	}

	tx, err := h.repo.Append(&domain.Transaction{
		AccountID:  accountID,
		Date:       req.Date,
		Symbol:     req.Symbol,
		SymbolType: req.SymbolType,
		Side:       side,
		Units:      req.Units,
		UnitPrice:  req.UnitPrice,
		Fees:       req.Fees,
	})
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to append transaction")
		http.Error(w, "Failed to record transaction", http.StatusInternalServerError)
		return
	}

	h.events.Emit(events.TransactionRecorded, "ledger", map[string]interface{}{
		"account_id": accountID,
		"symbol":     tx.Symbol,
		"side":       string(tx.Side),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tx)
}

// HandleGetTransactions handles GET /{accountID}/transactions
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	txs, err := h.repo.GetByAccount(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get transactions")
		http.Error(w, "Failed to retrieve transactions", http.StatusInternalServerError)
		return
	}

	if txs == nil {
		txs = []domain.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txs)
}
