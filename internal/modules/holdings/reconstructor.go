package holdings

import (
	"fmt"

	"github.com/stockleague/engine/internal/domain"
)

// unitsEpsilon treats residual float dust as a fully closed position
const unitsEpsilon = 1e-9

// Holding is a symbol's reconstructed position: units currently held and the
// cost basis (average-cost) of those units.
type Holding struct {
	Symbol   string  `json:"symbol"`
	Units    float64 `json:"units"`
	Invested float64 `json:"invested"`
}

// BreakEvenPrice returns the average cost per currently-held unit
func (h Holding) BreakEvenPrice() float64 {
	if h.Units == 0 {
		return 0
	}
	return h.Invested / h.Units
}

// InsufficientHoldingsError signals a SELL of more units than held. It is a
// data-integrity violation of the ledger, not a transient failure: the symbol
// is dropped for the run and the rest of the account is valued normally.
type InsufficientHoldingsError struct {
	Symbol    string
	Date      string
	Requested float64
	Held      float64
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("insufficient holdings for %s on %s: sell of %.4f units exceeds %.4f held",
		e.Symbol, e.Date, e.Requested, e.Held)
}

// Result is the outcome of replaying one account's ledger
type Result struct {
	Holdings             map[string]Holding
	BuyCount             int
	SellCount            int
	FirstTransactionDate string
	LastTransactionDate  string
	CashDelta            float64 // net cash effect of the replay, negative when net invested
	TotalFees            float64
	Violations           []*InsufficientHoldingsError
}

// Reconstruct folds a ledger, already in replay order, into current holdings.
//
// BUY adds units and grows the cost basis by units*price+fees. SELL removes
// units and reduces the basis proportionally (average-cost). A SELL exceeding
// the held units poisons that symbol for the rest of the run: the violation is
// recorded, the symbol's position is discarded, and its remaining transactions
// are ignored. Symbols folded down to zero units are dropped from the output.
//
// The fold is a pure function of its input: replaying the same ledger always
// produces an identical Result.
func Reconstruct(txs []domain.Transaction) Result {
	result := Result{
		Holdings: make(map[string]Holding),
	}

	skipped := make(map[string]bool)

	for _, tx := range txs {
		if result.FirstTransactionDate == "" || tx.Date < result.FirstTransactionDate {
			result.FirstTransactionDate = tx.Date
		}
		if tx.Date > result.LastTransactionDate {
			result.LastTransactionDate = tx.Date
		}

		if skipped[tx.Symbol] {
			continue
		}

		holding := result.Holdings[tx.Symbol]
		holding.Symbol = tx.Symbol

		switch tx.Side {
		case domain.TransactionSideBuy:
			holding.Units += tx.Units
			holding.Invested += tx.Units*tx.UnitPrice + tx.Fees
			result.BuyCount++

		case domain.TransactionSideSell:
			if tx.Units > holding.Units {
				result.Violations = append(result.Violations, &InsufficientHoldingsError{
					Symbol:    tx.Symbol,
					Date:      tx.Date,
					Requested: tx.Units,
					Held:      holding.Units,
				})
				skipped[tx.Symbol] = true
				delete(result.Holdings, tx.Symbol)
				continue
			}

			holding.Invested -= (tx.Units / holding.Units) * holding.Invested
			holding.Units -= tx.Units
			result.SellCount++

		default:
			// Unknown side rows are ledger corruption; ignore the row
			continue
		}

		result.TotalFees += tx.Fees
		switch tx.Side {
		case domain.TransactionSideBuy:
			result.CashDelta -= tx.Units*tx.UnitPrice + tx.Fees
		case domain.TransactionSideSell:
			result.CashDelta += tx.Units*tx.UnitPrice - tx.Fees
		}

		// Guard against float dust after a full sell-out
		if holding.Units <= unitsEpsilon {
			delete(result.Holdings, tx.Symbol)
			continue
		}

		result.Holdings[tx.Symbol] = holding
	}

	return result
}

// Symbols returns the distinct symbols currently held, in no particular order
func (r Result) Symbols() []string {
	symbols := make([]string, 0, len(r.Holdings))
	for symbol := range r.Holdings {
		symbols = append(symbols, symbol)
	}
	return symbols
}
