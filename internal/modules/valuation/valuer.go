package valuation

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/domain"
	"github.com/stockleague/engine/internal/modules/holdings"
	"github.com/stockleague/engine/pkg/formulas"
)

// Valuer marks reconstructed holdings to market and derives the complete
// portfolio state for one account.
type Valuer struct {
	log zerolog.Logger
}

// NewValuer creates a new portfolio valuer
func NewValuer(log zerolog.Logger) *Valuer {
	return &Valuer{
		log: log.With().Str("service", "valuer").Logger(),
	}
}

// Value computes the portfolio state for an account as of the given date.
//
// A symbol without a quote falls back to its last-known price from the
// previous state; a symbol with neither is excluded and logged. When the
// quote map is empty and the account actually holds positions, the previous
// state is returned unchanged (ok=false): a total quote outage must never
// zero out a portfolio, and the unchanged date keeps the account selectable
// for the next batch.
//
// All monetary outputs are rounded to 2 decimals here, at the persistence
// edge; intermediate sums stay at full precision so repeated daily runs do
// not compound rounding error.
func (v *Valuer) Value(
	ref domain.AccountRef,
	prev *domain.PortfolioState,
	recon holdings.Result,
	quotes map[string]domain.QuoteSnapshot,
	date string,
) (domain.PortfolioState, bool) {
	if len(quotes) == 0 && len(recon.Holdings) > 0 {
		if prev != nil {
			v.log.Warn().
				Str("account_id", ref.ID).
				Msg("No quotes available, keeping previous portfolio state")
			return *prev, false
		}
		v.log.Warn().
			Str("account_id", ref.ID).
			Msg("No quotes available and no previous state, skipping account")
		return domain.PortfolioState{}, false
	}

	holdingsBalance := 0.0
	invested := 0.0
	snapshots := make([]domain.HoldingSnapshot, 0, len(recon.Holdings))

	for _, symbol := range sortedSymbols(recon.Holdings) {
		holding := recon.Holdings[symbol]
		invested += holding.Invested

		price := 0.0
		changePct := 0.0
		if quote, ok := quotes[symbol]; ok {
			price = quote.Price
			changePct = quote.ChangePercent
		} else if last := prev.HoldingBySymbol(symbol); last != nil && last.LastPrice > 0 {
			price = last.LastPrice
			v.log.Warn().
				Str("account_id", ref.ID).
				Str("symbol", symbol).
				Float64("last_price", price).
				Msg("Quote missing, falling back to last-known price")
		} else {
			v.log.Warn().
				Str("account_id", ref.ID).
				Str("symbol", symbol).
				Msg("Quote missing with no last-known price, excluding symbol from valuation")
			continue
		}

		value := holding.Units * price
		holdingsBalance += value

		snapshots = append(snapshots, domain.HoldingSnapshot{
			Symbol:         symbol,
			Units:          holding.Units,
			Invested:       formulas.Round2(holding.Invested),
			BreakEvenPrice: formulas.Round4(holding.BreakEvenPrice()),
			LastPrice:      price,
			Value:          formulas.Round2(value),
			ChangePercent:  formulas.Round2(changePct),
		})
	}

	cashOnHand := ref.StartingCash + recon.CashDelta
	balance := cashOnHand + holdingsBalance
	totalGains := balance - ref.StartingCash

	state := domain.PortfolioState{
		AccountID:            ref.ID,
		Date:                 date,
		CashOnHand:           formulas.Round2(cashOnHand),
		Invested:             formulas.Round2(invested),
		HoldingsBalance:      formulas.Round2(holdingsBalance),
		Balance:              formulas.Round2(balance),
		StartingCash:         ref.StartingCash,
		TransactionFees:      formulas.Round2(recon.TotalFees),
		TotalGainsValue:      formulas.Round2(totalGains),
		TotalGainsPercentage: formulas.Round2(formulas.PercentChange(balance, ref.StartingCash)),
		FirstTransactionDate: recon.FirstTransactionDate,
		LastTransactionDate:  recon.LastTransactionDate,
		BuyTransactionCount:  recon.BuyCount,
		SellTransactionCount: recon.SellCount,
		Holdings:             snapshots,
	}

	if prev != nil {
		state.PreviousBalanceChange = formulas.Round2(state.Balance - prev.Balance)
		state.PreviousBalanceChangePercentage = formulas.Round2(
			formulas.PercentChange(state.Balance, prev.Balance))
	}

	return state, true
}

// sortedSymbols keeps snapshot order deterministic so re-runs are bit-identical
func sortedSymbols(m map[string]holdings.Holding) []string {
	symbols := make([]string, 0, len(m))
	for symbol := range m {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
