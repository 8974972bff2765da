package ledger

import "database/sql"

// The ledger is append-only: rows are never updated or deleted, and replay
// order is (date ASC, seq ASC) with seq breaking same-day ties.
const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    date TEXT NOT NULL,
    seq INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    symbol_type TEXT NOT NULL DEFAULT 'stock',
    side TEXT NOT NULL,
    units REAL NOT NULL,
    unit_price REAL NOT NULL,
    fees REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    UNIQUE(account_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, date, seq);
CREATE INDEX IF NOT EXISTS idx_transactions_symbol ON transactions(account_id, symbol);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
