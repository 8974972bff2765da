package leaderboard

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// Repository handles leaderboard persistence and the read queries that feed
// Rebuild. It reads across accounts, portfolio_states and rankings.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new leaderboard repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "leaderboard").Logger(),
	}
}

// TopGainers returns the best-ranked accounts on a ranking metric, joined
// with their state and display name, rank ascending.
func (r *Repository) TopGainers(metric string, limit int) ([]GainerEntry, error) {
	rows, err := r.db.Query(`
		SELECT rk.account_id, a.display_name, rk.rank, rk.rank_change,
		       ps.total_gains_percentage, ps.balance
		FROM rankings rk
		JOIN accounts a ON a.id = rk.account_id
		JOIN portfolio_states ps ON ps.account_id = rk.account_id
		WHERE rk.metric = ?
		ORDER BY rk.rank ASC, rk.account_id ASC
		LIMIT ?
	`, metric, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top gainers: %w", err)
	}
	defer rows.Close()

	var entries []GainerEntry
	for rows.Next() {
		var entry GainerEntry
		var rankChange sql.NullInt64

		if err := rows.Scan(&entry.AccountID, &entry.DisplayName, &entry.Rank,
			&rankChange, &entry.TotalGainsPercentage, &entry.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan gainer: %w", err)
		}
		if rankChange.Valid {
			v := int(rankChange.Int64)
			entry.RankChange = &v
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// BestMovers returns accounts with the largest positive day-over-day change.
// Flat and losing accounts never make this list.
func (r *Repository) BestMovers(limit int) ([]MoverEntry, error) {
	return r.movers(`
		SELECT ps.account_id, a.display_name, ps.previous_balance_change_percentage, ps.balance
		FROM portfolio_states ps
		JOIN accounts a ON a.id = ps.account_id
		WHERE ps.previous_balance_change_percentage > 0
		ORDER BY ps.previous_balance_change_percentage DESC, ps.account_id ASC
		LIMIT ?
	`, limit)
}

// WorstMovers returns the accounts with the smallest day-over-day change
func (r *Repository) WorstMovers(limit int) ([]MoverEntry, error) {
	return r.movers(`
		SELECT ps.account_id, a.display_name, ps.previous_balance_change_percentage, ps.balance
		FROM portfolio_states ps
		JOIN accounts a ON a.id = ps.account_id
		ORDER BY ps.previous_balance_change_percentage ASC, ps.account_id ASC
		LIMIT ?
	`, limit)
}

func (r *Repository) movers(query string, limit int) ([]MoverEntry, error) {
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query movers: %w", err)
	}
	defer rows.Close()

	var entries []MoverEntry
	for rows.Next() {
		var entry MoverEntry
		if err := rows.Scan(&entry.AccountID, &entry.DisplayName,
			&entry.ChangePercentage, &entry.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan mover: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GainPercentages returns every account's total gains percentage, the raw
// series behind the population stats.
func (r *Repository) GainPercentages() ([]float64, error) {
	rows, err := r.db.Query(`SELECT total_gains_percentage FROM portfolio_states`)
	if err != nil {
		return nil, fmt.Errorf("failed to query gain percentages: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan gain percentage: %w", err)
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// Replace swaps the published snapshot in a single statement. Readers see
// either the old snapshot or the new one, never a mix.
func (r *Repository) Replace(snapshot *Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard snapshot: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO leaderboard (id, date, generated_at, snapshot_json)
		VALUES (1, ?, ?, ?)
	`, snapshot.Date, snapshot.GeneratedAt, string(data))
	if err != nil {
		return fmt.Errorf("failed to replace leaderboard snapshot: %w", err)
	}

	return nil
}

// Get returns the published snapshot, or nil if none has been built yet
func (r *Repository) Get() (*Snapshot, error) {
	var data string
	err := r.db.QueryRow(`SELECT snapshot_json FROM leaderboard WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal leaderboard snapshot: %w", err)
	}

	return &snapshot, nil
}
