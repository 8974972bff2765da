package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionSide represents the direction of a ledger transaction
type TransactionSide string

const (
	TransactionSideBuy  TransactionSide = "BUY"
	TransactionSideSell TransactionSide = "SELL"
)

// IsValid checks if the transaction side is valid
func (s TransactionSide) IsValid() bool {
	return s == TransactionSideBuy || s == TransactionSideSell
}

// TransactionSideFromString creates a TransactionSide from a string (case-insensitive)
func TransactionSideFromString(value string) (TransactionSide, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BUY":
		return TransactionSideBuy, nil
	case "SELL":
		return TransactionSideSell, nil
	default:
		return "", fmt.Errorf("invalid transaction side: %q", value)
	}
}

// Transaction is one immutable entry in an account's ledger.
// Replay order is (Date ASC, Seq ASC); Seq breaks same-day ties.
type Transaction struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	Date       string          `json:"date"` // YYYY-MM-DD
	Seq        int64           `json:"seq"`
	Symbol     string          `json:"symbol"`
	SymbolType string          `json:"symbol_type"` // stock, etf, crypto
	Side       TransactionSide `json:"side"`
	Units      float64         `json:"units"`
	UnitPrice  float64         `json:"unit_price"`
	Fees       float64         `json:"fees"`
	CreatedAt  time.Time       `json:"created_at"`
}

// QuoteSnapshot is a quote valid only for the instant of one valuation pass
type QuoteSnapshot struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

// HoldingSnapshot is a valued position persisted inside a PortfolioState.
// LastPrice/Value carry the last-known valuation used as a fallback when a
// later pass is missing a quote for the symbol.
type HoldingSnapshot struct {
	Symbol         string  `json:"symbol"`
	Units          float64 `json:"units"`
	Invested       float64 `json:"invested"`
	BreakEvenPrice float64 `json:"break_even_price"`
	LastPrice      float64 `json:"last_price"`
	Value          float64 `json:"value"`
	ChangePercent  float64 `json:"change_percent"`
}

// PortfolioState is the persisted result of one account valuation.
// Invariant: Balance == CashOnHand + HoldingsBalance (at 2-decimal precision).
// The Date field doubles as the batch cursor: an account whose Date differs
// from today is still pending for today's valuation pass.
type PortfolioState struct {
	AccountID                       string            `json:"account_id"`
	Date                            string            `json:"date"` // YYYY-MM-DD
	CashOnHand                      float64           `json:"cash_on_hand"`
	Invested                        float64           `json:"invested"`
	HoldingsBalance                 float64           `json:"holdings_balance"`
	Balance                         float64           `json:"balance"`
	StartingCash                    float64           `json:"starting_cash"`
	TransactionFees                 float64           `json:"transaction_fees"`
	TotalGainsValue                 float64           `json:"total_gains_value"`
	TotalGainsPercentage            float64           `json:"total_gains_percentage"`
	PreviousBalanceChange           float64           `json:"previous_balance_change"`
	PreviousBalanceChangePercentage float64           `json:"previous_balance_change_percentage"`
	FirstTransactionDate            string            `json:"first_transaction_date,omitempty"`
	LastTransactionDate             string            `json:"last_transaction_date,omitempty"`
	BuyTransactionCount             int               `json:"buy_transaction_count"`
	SellTransactionCount            int               `json:"sell_transaction_count"`
	Holdings                        []HoldingSnapshot `json:"holdings"`
	UpdatedAt                       time.Time         `json:"updated_at,omitempty"`
}

// HoldingBySymbol returns the persisted holding snapshot for a symbol, if any
func (s *PortfolioState) HoldingBySymbol(symbol string) *HoldingSnapshot {
	if s == nil {
		return nil
	}
	for i := range s.Holdings {
		if s.Holdings[i].Symbol == symbol {
			return &s.Holdings[i]
		}
	}
	return nil
}

// RankingItem is one account's position on a ranking dimension.
// RankChange = RankPrevious - Rank, so a positive change is an improvement.
type RankingItem struct {
	AccountID    string `json:"account_id"`
	Metric       string `json:"metric"`
	Rank         int    `json:"rank"`
	RankPrevious *int   `json:"rank_previous"`
	RankChange   *int   `json:"rank_change"`
}

// AccountRef is the slice of account data the batch scheduler selects on
type AccountRef struct {
	ID            string  `json:"id"`
	DisplayName   string  `json:"display_name"`
	StartingCash  float64 `json:"starting_cash"`
	LastLoginDate string  `json:"last_login_date"`
	StateDate     string  `json:"state_date"` // last valued date, empty if never valued
}
