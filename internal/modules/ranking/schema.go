package ranking

import "database/sql"

const Schema = `
CREATE TABLE IF NOT EXISTS rankings (
    account_id TEXT NOT NULL,
    metric TEXT NOT NULL,
    rank INTEGER NOT NULL,
    rank_previous INTEGER,
    rank_change INTEGER,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (account_id, metric)
);

CREATE INDEX IF NOT EXISTS idx_rankings_metric_rank ON rankings(metric, rank);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
