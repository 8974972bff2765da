package leaderboard

import "database/sql"

// Single-row table: the CHECK pins id to 1 so INSERT OR REPLACE is an atomic
// wholesale swap of the published snapshot.
const Schema = `
CREATE TABLE IF NOT EXISTS leaderboard (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    date TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    snapshot_json TEXT NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
