package valuation

import "database/sql"

// One row per account. The date column is deliberately both business data and
// batch cursor: the selection query treats date != today as "still pending",
// so progress survives restarts without a separate offset table.
const Schema = `
CREATE TABLE IF NOT EXISTS portfolio_states (
    account_id TEXT PRIMARY KEY,
    date TEXT NOT NULL,
    cash_on_hand REAL NOT NULL,
    invested REAL NOT NULL,
    holdings_balance REAL NOT NULL,
    balance REAL NOT NULL,
    starting_cash REAL NOT NULL,
    transaction_fees REAL NOT NULL,
    total_gains_value REAL NOT NULL,
    total_gains_percentage REAL NOT NULL,
    previous_balance_change REAL NOT NULL,
    previous_balance_change_percentage REAL NOT NULL,
    first_transaction_date TEXT NOT NULL DEFAULT '',
    last_transaction_date TEXT NOT NULL DEFAULT '',
    buy_transaction_count INTEGER NOT NULL DEFAULT 0,
    sell_transaction_count INTEGER NOT NULL DEFAULT 0,
    holdings_json TEXT NOT NULL DEFAULT '[]',
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_portfolio_states_date ON portfolio_states(date);
CREATE INDEX IF NOT EXISTS idx_portfolio_states_gains ON portfolio_states(total_gains_percentage);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
