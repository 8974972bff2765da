package valuation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stockleague/engine/internal/domain"
	"github.com/stockleague/engine/internal/events"
	"github.com/stockleague/engine/internal/modules/holdings"
)

// LedgerSource reads an account's transaction history in replay order
type LedgerSource interface {
	GetByAccount(accountID string) ([]domain.Transaction, error)
}

// QuoteGateway fetches current quotes for a set of symbols. Partial results
// are expected; a returned error means a total outage.
type QuoteGateway interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error)
}

// StateStore persists portfolio states and drives the pending-account cursor
type StateStore interface {
	SelectPending(today string, limit int) ([]domain.AccountRef, error)
	GetState(accountID string) (*domain.PortfolioState, error)
	UpsertState(state *domain.PortfolioState) error
}

// ServiceConfig holds configuration for the valuation batch service
type ServiceConfig struct {
	Repo      StateStore
	Ledger    LedgerSource
	Gateway   QuoteGateway
	Events    *events.Manager
	BatchSize int
	Workers   int
	Log       zerolog.Logger
}

// Service drives valuation across the account population, one bounded batch
// per invocation. Progress lives entirely in the persisted state dates, so
// invocations are independent and a mid-run crash costs at most the accounts
// that were not yet written.
type Service struct {
	repo      StateStore
	ledger    LedgerSource
	gateway   QuoteGateway
	valuer    *Valuer
	events    *events.Manager
	batchSize int
	workers   int
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a new valuation batch service
func NewService(cfg ServiceConfig) *Service {
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 200
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &Service{
		repo:      cfg.Repo,
		ledger:    cfg.Ledger,
		gateway:   cfg.Gateway,
		valuer:    NewValuer(cfg.Log),
		events:    cfg.Events,
		batchSize: batchSize,
		workers:   workers,
		now:       time.Now,
		log:       cfg.Log.With().Str("service", "valuation").Logger(),
	}
}

// RunBatch processes one batch of pending accounts for today. Each account's
// failure is recorded and isolated; nothing an account does can abort its
// siblings. Invoking RunBatch repeatedly converges: once every account's
// state date equals today, the selection comes back empty and Done is set.
func (s *Service) RunBatch(ctx context.Context) (*BatchReport, error) {
	started := s.now()
	today := started.Format("2006-01-02")

	report := &BatchReport{Date: today}

	refs, err := s.repo.SelectPending(today, s.batchSize)
	if err != nil {
		return nil, err
	}

	if len(refs) == 0 {
		report.Done = true
		report.Duration = time.Since(started)
		s.log.Info().Str("date", today).Msg("No pending accounts, valuation day converged")
		s.events.Emit(events.ValuationDayConverged, "valuation", map[string]interface{}{
			"date": today,
		})
		return report, nil
	}

	report.Selected = len(refs)
	s.log.Info().
		Str("date", today).
		Int("selected", len(refs)).
		Msg("Starting valuation batch")
	s.events.Emit(events.ValuationBatchStart, "valuation", map[string]interface{}{
		"date":     today,
		"selected": len(refs),
	})

	// Phase 1: replay every selected ledger and collect the symbol union so
	// the quote gateway is hit once per batch, not once per account.
	recons := make(map[string]holdings.Result, len(refs))
	symbolSet := make(map[string]bool)
	valid := refs[:0]

	for _, ref := range refs {
		txs, err := s.ledger.GetByAccount(ref.ID)
		if err != nil {
			s.log.Error().Err(err).Str("account_id", ref.ID).Msg("Failed to read ledger")
			report.Failed = append(report.Failed, AccountFailure{
				AccountID: ref.ID,
				Reason:    "ledger read failed: " + err.Error(),
			})
			continue
		}

		recon := holdings.Reconstruct(txs)
		for _, violation := range recon.Violations {
			s.log.Error().
				Str("account_id", ref.ID).
				Str("symbol", violation.Symbol).
				Str("date", violation.Date).
				Float64("requested", violation.Requested).
				Float64("held", violation.Held).
				Msg("Data integrity violation in ledger, symbol skipped for this run")
			s.events.Emit(events.DataIntegrityViolation, "valuation", map[string]interface{}{
				"account_id": ref.ID,
				"symbol":     violation.Symbol,
				"detail":     violation.Error(),
			})
		}

		recons[ref.ID] = recon
		for symbol := range recon.Holdings {
			symbolSet[symbol] = true
		}
		valid = append(valid, ref)
	}

	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}

	quotes, err := s.gateway.GetQuotes(ctx, symbols)
	if err != nil {
		// Total outage: accounts holding positions become no-ops below and
		// stay pending; cash-only accounts can still be valued.
		s.log.Error().Err(err).Msg("Quote gateway unavailable for this batch")
		s.events.Emit(events.QuoteGatewayDegraded, "valuation", map[string]interface{}{
			"error": err.Error(),
		})
		quotes = map[string]domain.QuoteSnapshot{}
	}

	// Phase 2: value and persist each account with bounded parallelism.
	// Accounts own disjoint rows, so workers never contend on the same key.
	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, ref := range valid {
		ref := ref
		g.Go(func() error {
			failure := s.processAccount(ref, recons[ref.ID], quotes, today)

			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				report.Failed = append(report.Failed, *failure)
			} else {
				report.Updated++
			}
			return nil
		})
	}

	_ = g.Wait() // workers report failures through the batch report, never as errors

	report.Duration = time.Since(started)
	s.log.Info().
		Str("date", today).
		Int("updated", report.Updated).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration).
		Msg("Valuation batch completed")
	s.events.Emit(events.ValuationBatchComplete, "valuation", map[string]interface{}{
		"date":    today,
		"updated": report.Updated,
		"failed":  len(report.Failed),
	})

	return report, nil
}

// processAccount values and persists a single account, returning a failure
// record instead of an error so one account can never unwind the batch
func (s *Service) processAccount(
	ref domain.AccountRef,
	recon holdings.Result,
	quotes map[string]domain.QuoteSnapshot,
	today string,
) *AccountFailure {
	prev, err := s.repo.GetState(ref.ID)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", ref.ID).Msg("Failed to load previous state")
		return &AccountFailure{AccountID: ref.ID, Reason: "state read failed: " + err.Error()}
	}

	state, ok := s.valuer.Value(ref, prev, recon, quotes, today)
	if !ok {
		return &AccountFailure{AccountID: ref.ID, Reason: "quotes unavailable"}
	}

	if err := s.repo.UpsertState(&state); err != nil {
		// The date was not advanced, so the account is retried by omission
		// on the next invocation
		s.log.Error().Err(err).Str("account_id", ref.ID).Msg("Failed to persist portfolio state")
		return &AccountFailure{AccountID: ref.ID, Reason: "state write failed: " + err.Error()}
	}

	return nil
}

// RunToConvergence invokes RunBatch until the day's pass is complete. Used by
// the manual trigger endpoint; the cron path runs one batch per tick.
func (s *Service) RunToConvergence(ctx context.Context) (*BatchReport, error) {
	total := &BatchReport{}
	for {
		report, err := s.RunBatch(ctx)
		if err != nil {
			return total, err
		}
		total.Date = report.Date
		total.Selected += report.Selected
		total.Updated += report.Updated
		total.Failed = append(total.Failed, report.Failed...)
		total.Duration += report.Duration

		if report.Done {
			total.Done = true
			return total, nil
		}
		// A batch that updated nothing cannot make progress (outage or
		// persistent failures); stop instead of spinning
		if report.Updated == 0 {
			return total, nil
		}

		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}
	}
}
