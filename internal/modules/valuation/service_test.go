package valuation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockleague/engine/internal/database"
	"github.com/stockleague/engine/internal/domain"
	"github.com/stockleague/engine/internal/events"
	"github.com/stockleague/engine/internal/modules/accounts"
)

type fakeLedger struct {
	txs     map[string][]domain.Transaction
	failFor map[string]bool
}

func (f *fakeLedger) GetByAccount(accountID string) ([]domain.Transaction, error) {
	if f.failFor[accountID] {
		return nil, fmt.Errorf("ledger unavailable for %s", accountID)
	}
	return f.txs[accountID], nil
}

type fakeGateway struct {
	quotes map[string]domain.QuoteSnapshot
	fail   bool
	calls  int
}

func (f *fakeGateway) GetQuotes(ctx context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("gateway down")
	}
	result := make(map[string]domain.QuoteSnapshot)
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			result[s] = q
		}
	}
	return result, nil
}

// flakyStore wraps the real repository and fails writes for chosen accounts
type flakyStore struct {
	*Repository
	failWrites map[string]bool
}

func (f *flakyStore) UpsertState(state *domain.PortfolioState) error {
	if f.failWrites[state.AccountID] {
		return fmt.Errorf("disk on fire")
	}
	return f.Repository.UpsertState(state)
}

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, accounts.InitSchema(db.Conn()))
	require.NoError(t, InitSchema(db.Conn()))

	return db
}

func seedAccounts(t *testing.T, db *database.DB, n int, startingCash float64) []string {
	t.Helper()

	repo := accounts.NewRepository(db.Conn(), zerolog.Nop())
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		account, err := repo.Create(&accounts.Account{
			ID:            fmt.Sprintf("acct-%02d", i+1),
			DisplayName:   fmt.Sprintf("Player %d", i+1),
			StartingCash:  startingCash,
			LastLoginDate: "2024-02-28",
		})
		require.NoError(t, err)
		ids = append(ids, account.ID)
	}
	return ids
}

func newTestService(repo StateStore, ledger LedgerSource, gateway QuoteGateway, batchSize, workers int) *Service {
	svc := NewService(ServiceConfig{
		Repo:      repo,
		Ledger:    ledger,
		Gateway:   gateway,
		Events:    events.NewManager(zerolog.Nop()),
		BatchSize: batchSize,
		Workers:   workers,
		Log:       zerolog.Nop(),
	})
	svc.now = func() time.Time {
		return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestRunBatch_ConvergesWithinExpectedInvocations(t *testing.T) {
	db := setupTestDB(t)
	ids := seedAccounts(t, db, 5, 10000)

	ledger := &fakeLedger{txs: map[string][]domain.Transaction{}}
	for _, id := range ids {
		ledger.txs[id] = []domain.Transaction{
			{Date: "2024-01-02", Symbol: "AAPL", Side: domain.TransactionSideBuy, Units: 10, UnitPrice: 100},
		}
	}
	gateway := &fakeGateway{quotes: map[string]domain.QuoteSnapshot{
		"AAPL": {Symbol: "AAPL", Price: 110},
	}}

	repo := NewRepository(db.Conn(), zerolog.Nop())
	svc := newTestService(repo, ledger, gateway, 2, 2)

	// Population of 5 with batches of 2 must converge in ceil(5/2) = 3 runs
	totalUpdated := 0
	for i := 0; i < 3; i++ {
		report, err := svc.RunBatch(context.Background())
		require.NoError(t, err)
		assert.False(t, report.Done)
		assert.Empty(t, report.Failed)
		totalUpdated += report.Updated
	}
	assert.Equal(t, 5, totalUpdated)

	report, err := svc.RunBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Done)
	assert.Zero(t, report.Selected)

	// Every account is stamped with today's date
	pending, err := repo.CountPending("2024-03-01")
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestRunBatch_OneQuoteCallPerBatch(t *testing.T) {
	db := setupTestDB(t)
	ids := seedAccounts(t, db, 4, 10000)

	ledger := &fakeLedger{txs: map[string][]domain.Transaction{}}
	for i, id := range ids {
		symbol := fmt.Sprintf("SYM%d", i)
		ledger.txs[id] = []domain.Transaction{
			{Date: "2024-01-02", Symbol: symbol, Side: domain.TransactionSideBuy, Units: 1, UnitPrice: 50},
		}
	}
	gateway := &fakeGateway{quotes: map[string]domain.QuoteSnapshot{
		"SYM0": {Symbol: "SYM0", Price: 51},
		"SYM1": {Symbol: "SYM1", Price: 52},
		"SYM2": {Symbol: "SYM2", Price: 53},
		"SYM3": {Symbol: "SYM3", Price: 54},
	}}

	repo := NewRepository(db.Conn(), zerolog.Nop())
	svc := newTestService(repo, ledger, gateway, 10, 4)

	report, err := svc.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Updated)
	assert.Equal(t, 1, gateway.calls, "symbols must be fetched once per batch, not per account")
}

func TestRunBatch_AccountFailureIsIsolated(t *testing.T) {
	db := setupTestDB(t)
	ids := seedAccounts(t, db, 3, 10000)

	ledger := &fakeLedger{
		txs:     map[string][]domain.Transaction{},
		failFor: map[string]bool{ids[1]: true},
	}
	for _, id := range ids {
		ledger.txs[id] = []domain.Transaction{
			{Date: "2024-01-02", Symbol: "AAPL", Side: domain.TransactionSideBuy, Units: 1, UnitPrice: 100},
		}
	}
	gateway := &fakeGateway{quotes: map[string]domain.QuoteSnapshot{
		"AAPL": {Symbol: "AAPL", Price: 110},
	}}

	repo := NewRepository(db.Conn(), zerolog.Nop())
	svc := newTestService(repo, ledger, gateway, 10, 2)

	report, err := svc.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Updated)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, ids[1], report.Failed[0].AccountID)

	// The failed account is still pending and selected again next run
	pending, err := repo.CountPending("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestRunBatch_WriteFailureRetriedByOmission(t *testing.T) {
	db := setupTestDB(t)
	ids := seedAccounts(t, db, 2, 10000)

	ledger := &fakeLedger{txs: map[string][]domain.Transaction{}}
	for _, id := range ids {
		ledger.txs[id] = []domain.Transaction{
			{Date: "2024-01-02", Symbol: "AAPL", Side: domain.TransactionSideBuy, Units: 1, UnitPrice: 100},
		}
	}
	gateway := &fakeGateway{quotes: map[string]domain.QuoteSnapshot{
		"AAPL": {Symbol: "AAPL", Price: 110},
	}}

	repo := NewRepository(db.Conn(), zerolog.Nop())
	store := &flakyStore{Repository: repo, failWrites: map[string]bool{ids[0]: true}}
	svc := newTestService(store, ledger, gateway, 10, 1)

	report, err := svc.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	require.Len(t, report.Failed, 1)

	// Heal the store; the next invocation selects only the failed account
	store.failWrites = map[string]bool{}
	report, err = svc.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Selected)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, ids[0], mustGetState(t, repo, ids[0]).AccountID)
}

func TestRunBatch_TotalQuoteOutageLeavesAccountsPending(t *testing.T) {
	db := setupTestDB(t)
	ids := seedAccounts(t, db, 2, 10000)

	ledger := &fakeLedger{txs: map[string][]domain.Transaction{}}
	ledger.txs[ids[0]] = []domain.Transaction{
		{Date: "2024-01-02", Symbol: "AAPL", Side: domain.TransactionSideBuy, Units: 1, UnitPrice: 100},
	}
	// ids[1] is cash-only and can still be valued during the outage
	gateway := &fakeGateway{fail: true}

	repo := NewRepository(db.Conn(), zerolog.Nop())
	svc := newTestService(repo, ledger, gateway, 10, 2)

	report, err := svc.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, ids[0], report.Failed[0].AccountID)

	// The position-holding account was never zeroed out
	state, err := repo.GetState(ids[0])
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestRunBatch_RerunIsNoOpForUpdatedAccounts(t *testing.T) {
	db := setupTestDB(t)
	seedAccounts(t, db, 2, 10000)

	ledger := &fakeLedger{txs: map[string][]domain.Transaction{}}
	gateway := &fakeGateway{quotes: map[string]domain.QuoteSnapshot{}}

	repo := NewRepository(db.Conn(), zerolog.Nop())
	svc := newTestService(repo, ledger, gateway, 10, 2)

	report, err := svc.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Updated)

	report, err = svc.RunBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Done)
	assert.Zero(t, report.Selected)
}

func TestRunToConvergence(t *testing.T) {
	db := setupTestDB(t)
	ids := seedAccounts(t, db, 7, 5000)

	ledger := &fakeLedger{txs: map[string][]domain.Transaction{}}
	for _, id := range ids {
		ledger.txs[id] = []domain.Transaction{
			{Date: "2024-01-02", Symbol: "MSFT", Side: domain.TransactionSideBuy, Units: 2, UnitPrice: 200},
		}
	}
	gateway := &fakeGateway{quotes: map[string]domain.QuoteSnapshot{
		"MSFT": {Symbol: "MSFT", Price: 210},
	}}

	repo := NewRepository(db.Conn(), zerolog.Nop())
	svc := newTestService(repo, ledger, gateway, 3, 2)

	report, err := svc.RunToConvergence(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Done)
	assert.Equal(t, 7, report.Updated)
}

func mustGetState(t *testing.T, repo *Repository, accountID string) *domain.PortfolioState {
	t.Helper()
	state, err := repo.GetState(accountID)
	require.NoError(t, err)
	require.NotNil(t, state)
	return state
}
