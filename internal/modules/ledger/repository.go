package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/database/repositories"
	"github.com/stockleague/engine/internal/domain"
)

// Repository handles transaction ledger persistence. The ledger is read-only
// for the valuation engine; Append exists for the recording API surface.
type Repository struct {
	*repositories.BaseRepository
}

// NewRepository creates a new ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "ledger").Logger()),
	}
}

// Append records a new transaction at the end of the account's ledger.
// The per-account sequence number is assigned inside the transaction so
// same-day entries keep a stable replay order.
func (r *Repository) Append(tx *domain.Transaction) (*domain.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.CreatedAt = time.Now()

	dbTx, err := r.DB().Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	err = dbTx.QueryRow(
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM transactions WHERE account_id = ?",
		tx.AccountID,
	).Scan(&tx.Seq)
	if err != nil {
		return nil, fmt.Errorf("failed to assign sequence number: %w", err)
	}

	_, err = dbTx.Exec(`
		INSERT INTO transactions
			(id, account_id, date, seq, symbol, symbol_type, side, units, unit_price, fees, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ID,
		tx.AccountID,
		tx.Date,
		tx.Seq,
		tx.Symbol,
		tx.SymbolType,
		string(tx.Side),
		tx.Units,
		tx.UnitPrice,
		tx.Fees,
		tx.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tx, nil
}

// GetByAccount returns the full ledger for an account in replay order
func (r *Repository) GetByAccount(accountID string) ([]domain.Transaction, error) {
	rows, err := r.DB().Query(`
		SELECT id, account_id, date, seq, symbol, symbol_type, side, units, unit_price, fees, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY date ASC, seq ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var side, createdAt string

		if err := rows.Scan(
			&tx.ID,
			&tx.AccountID,
			&tx.Date,
			&tx.Seq,
			&tx.Symbol,
			&tx.SymbolType,
			&side,
			&tx.Units,
			&tx.UnitPrice,
			&tx.Fees,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.Side = domain.TransactionSide(side)
		tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// CountByAccount returns the number of ledger entries for an account
func (r *Repository) CountByAccount(accountID string) (int, error) {
	var count int
	err := r.DB().QueryRow(
		"SELECT COUNT(*) FROM transactions WHERE account_id = ?", accountID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
