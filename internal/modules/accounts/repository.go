package accounts

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/database/repositories"
)

// Repository handles account persistence
type Repository struct {
	*repositories.BaseRepository
}

// NewRepository creates a new account repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "accounts").Logger()),
	}
}

// Create inserts a new account. An empty ID is assigned a fresh UUID.
func (r *Repository) Create(account *Account) (*Account, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now()

	_, err := r.DB().Exec(`
		INSERT INTO accounts (id, display_name, starting_cash, last_login_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		account.ID,
		account.DisplayName,
		account.StartingCash,
		account.LastLoginDate,
		account.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	return account, nil
}

// GetByID retrieves an account, returning nil when not found
func (r *Repository) GetByID(id string) (*Account, error) {
	var account Account
	var createdAt string

	err := r.DB().QueryRow(`
		SELECT id, display_name, starting_cash, last_login_date, created_at
		FROM accounts
		WHERE id = ?
	`, id).Scan(
		&account.ID,
		&account.DisplayName,
		&account.StartingCash,
		&account.LastLoginDate,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &account, nil
}

// TouchLogin stamps the account's last login date, used by the batch
// selection ordering to favor active accounts within a staleness tier
func (r *Repository) TouchLogin(id string, date string) error {
	result, err := r.DB().Exec(
		"UPDATE accounts SET last_login_date = ? WHERE id = ?", date, id)
	if err != nil {
		return fmt.Errorf("failed to touch login date: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account not found: %s", id)
	}

	return nil
}

// Count returns the total number of accounts
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.DB().QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// Exists checks whether an account exists
func (r *Repository) Exists(id string) (bool, error) {
	var count int
	err := r.DB().QueryRow("SELECT COUNT(*) FROM accounts WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return count > 0, nil
}
