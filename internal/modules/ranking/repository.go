package ranking

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/domain"
)

// Repository handles ranking persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new ranking repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "ranking").Logger(),
	}
}

// GetAll returns the stored ranks for a metric, keyed by account id
func (r *Repository) GetAll(metric string) (map[string]domain.RankingItem, error) {
	rows, err := r.db.Query(`
		SELECT account_id, metric, rank, rank_previous, rank_change
		FROM rankings
		WHERE metric = ?
	`, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}
	defer rows.Close()

	items := make(map[string]domain.RankingItem)
	for rows.Next() {
		var item domain.RankingItem
		var rankPrevious, rankChange sql.NullInt64

		if err := rows.Scan(&item.AccountID, &item.Metric, &item.Rank, &rankPrevious, &rankChange); err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}

		if rankPrevious.Valid {
			v := int(rankPrevious.Int64)
			item.RankPrevious = &v
		}
		if rankChange.Valid {
			v := int(rankChange.Int64)
			item.RankChange = &v
		}

		items[item.AccountID] = item
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rankings: %w", err)
	}

	return items, nil
}

// Upsert writes a single ranking row. Writes are per-entity on purpose: a
// failed write must not block the rest of the population.
func (r *Repository) Upsert(item domain.RankingItem) error {
	var rankPrevious, rankChange interface{}
	if item.RankPrevious != nil {
		rankPrevious = *item.RankPrevious
	}
	if item.RankChange != nil {
		rankChange = *item.RankChange
	}

	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO rankings (account_id, metric, rank, rank_previous, rank_change, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		item.AccountID,
		item.Metric,
		item.Rank,
		rankPrevious,
		rankChange,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ranking: %w", err)
	}

	return nil
}

// GetTop returns the best-ranked account ids for a metric, rank ascending
func (r *Repository) GetTop(metric string, limit int) ([]domain.RankingItem, error) {
	rows, err := r.db.Query(`
		SELECT account_id, metric, rank, rank_previous, rank_change
		FROM rankings
		WHERE metric = ?
		ORDER BY rank ASC
		LIMIT ?
	`, metric, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top rankings: %w", err)
	}
	defer rows.Close()

	var items []domain.RankingItem
	for rows.Next() {
		var item domain.RankingItem
		var rankPrevious, rankChange sql.NullInt64

		if err := rows.Scan(&item.AccountID, &item.Metric, &item.Rank, &rankPrevious, &rankChange); err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		if rankPrevious.Valid {
			v := int(rankPrevious.Int64)
			item.RankPrevious = &v
		}
		if rankChange.Valid {
			v := int(rankChange.Int64)
			item.RankChange = &v
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top rankings: %w", err)
	}

	return items, nil
}
