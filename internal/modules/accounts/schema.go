package accounts

import "database/sql"

const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    starting_cash REAL NOT NULL,
    last_login_date TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_last_login ON accounts(last_login_date);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
