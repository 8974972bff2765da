package valuation

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/domain"
)

// Repository handles portfolio state persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new valuation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "valuation").Logger(),
	}
}

// SelectPending returns up to limit accounts whose portfolio state has not
// been stamped with today's date. Accounts furthest behind come first; within
// the same staleness tier, recently active accounts are prioritized over
// dormant ones. Never-valued accounts sort first (empty state date).
func (r *Repository) SelectPending(today string, limit int) ([]domain.AccountRef, error) {
	rows, err := r.db.Query(`
		SELECT a.id, a.display_name, a.starting_cash, a.last_login_date,
		       COALESCE(ps.date, '') AS state_date
		FROM accounts a
		LEFT JOIN portfolio_states ps ON ps.account_id = a.id
		WHERE ps.date IS NULL OR ps.date != ?
		ORDER BY state_date ASC, a.last_login_date DESC, a.id ASC
		LIMIT ?
	`, today, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending accounts: %w", err)
	}
	defer rows.Close()

	var refs []domain.AccountRef
	for rows.Next() {
		var ref domain.AccountRef
		if err := rows.Scan(
			&ref.ID,
			&ref.DisplayName,
			&ref.StartingCash,
			&ref.LastLoginDate,
			&ref.StateDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account ref: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending accounts: %w", err)
	}

	return refs, nil
}

// GetState returns the persisted state for an account, nil when never valued
func (r *Repository) GetState(accountID string) (*domain.PortfolioState, error) {
	row := r.db.QueryRow(selectStateColumns+" FROM portfolio_states WHERE account_id = ?", accountID)

	state, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio state: %w", err)
	}

	return state, nil
}

// UpsertState persists a valuation result, replacing any previous state row.
// Advancing the date column here is what marks the account as done for the
// day; a failed write leaves it selectable for the next batch.
func (r *Repository) UpsertState(state *domain.PortfolioState) error {
	holdingsJSON, err := json.Marshal(state.Holdings)
	if err != nil {
		return fmt.Errorf("failed to marshal holdings: %w", err)
	}

	state.UpdatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO portfolio_states
			(account_id, date, cash_on_hand, invested, holdings_balance, balance,
			 starting_cash, transaction_fees, total_gains_value, total_gains_percentage,
			 previous_balance_change, previous_balance_change_percentage,
			 first_transaction_date, last_transaction_date,
			 buy_transaction_count, sell_transaction_count, holdings_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		state.AccountID,
		state.Date,
		state.CashOnHand,
		state.Invested,
		state.HoldingsBalance,
		state.Balance,
		state.StartingCash,
		state.TransactionFees,
		state.TotalGainsValue,
		state.TotalGainsPercentage,
		state.PreviousBalanceChange,
		state.PreviousBalanceChangePercentage,
		state.FirstTransactionDate,
		state.LastTransactionDate,
		state.BuyTransactionCount,
		state.SellTransactionCount,
		string(holdingsJSON),
		state.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit portfolio state: %w", err)
	}

	return nil
}

// GetAllStates returns every persisted portfolio state, ordered by account id
// so downstream ranking sees a stable input order
func (r *Repository) GetAllStates() ([]domain.PortfolioState, error) {
	rows, err := r.db.Query(selectStateColumns + " FROM portfolio_states ORDER BY account_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio states: %w", err)
	}
	defer rows.Close()

	var states []domain.PortfolioState
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio state: %w", err)
		}
		states = append(states, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio states: %w", err)
	}

	return states, nil
}

// CountPending returns how many accounts are still pending for today
func (r *Repository) CountPending(today string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM accounts a
		LEFT JOIN portfolio_states ps ON ps.account_id = a.id
		WHERE ps.date IS NULL OR ps.date != ?
	`, today).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending accounts: %w", err)
	}
	return count, nil
}

const selectStateColumns = `
	SELECT account_id, date, cash_on_hand, invested, holdings_balance, balance,
	       starting_cash, transaction_fees, total_gains_value, total_gains_percentage,
	       previous_balance_change, previous_balance_change_percentage,
	       first_transaction_date, last_transaction_date,
	       buy_transaction_count, sell_transaction_count, holdings_json, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanState(row rowScanner) (*domain.PortfolioState, error) {
	var state domain.PortfolioState
	var holdingsJSON, updatedAt string

	err := row.Scan(
		&state.AccountID,
		&state.Date,
		&state.CashOnHand,
		&state.Invested,
		&state.HoldingsBalance,
		&state.Balance,
		&state.StartingCash,
		&state.TransactionFees,
		&state.TotalGainsValue,
		&state.TotalGainsPercentage,
		&state.PreviousBalanceChange,
		&state.PreviousBalanceChangePercentage,
		&state.FirstTransactionDate,
		&state.LastTransactionDate,
		&state.BuyTransactionCount,
		&state.SellTransactionCount,
		&holdingsJSON,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(holdingsJSON), &state.Holdings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holdings: %w", err)
	}
	state.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &state, nil
}
