package leaderboard

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockleague/engine/internal/database"
	"github.com/stockleague/engine/internal/domain"
	"github.com/stockleague/engine/internal/events"
	"github.com/stockleague/engine/internal/modules/accounts"
	"github.com/stockleague/engine/internal/modules/ranking"
	"github.com/stockleague/engine/internal/modules/valuation"
)

type fixture struct {
	db      *database.DB
	svc     *Service
	repo    *Repository
	states  *valuation.Repository
	ranks   *ranking.Repository
	account *accounts.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, accounts.InitSchema(db.Conn()))
	require.NoError(t, valuation.InitSchema(db.Conn()))
	require.NoError(t, ranking.InitSchema(db.Conn()))
	require.NoError(t, InitSchema(db.Conn()))

	repo := NewRepository(db.Conn(), zerolog.Nop())
	svc := NewService(repo, events.NewManager(zerolog.Nop()), 3, 2, zerolog.Nop())
	svc.now = func() time.Time {
		return time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	}

	return &fixture{
		db:      db,
		svc:     svc,
		repo:    repo,
		states:  valuation.NewRepository(db.Conn(), zerolog.Nop()),
		ranks:   ranking.NewRepository(db.Conn(), zerolog.Nop()),
		account: accounts.NewRepository(db.Conn(), zerolog.Nop()),
	}
}

// seed writes one account with a valued state and a gains rank.
// dailyPct drives the movers lists.
func (f *fixture) seed(t *testing.T, id string, rank int, gainsPct, dailyPct float64) {
	t.Helper()

	_, err := f.db.Exec(`
		INSERT INTO accounts (id, display_name, starting_cash, last_login_date, created_at)
		VALUES (?, ?, 10000, '2024-02-28', '2024-01-01T00:00:00Z')
	`, id, "Player "+id)
	require.NoError(t, err)

	require.NoError(t, f.states.UpsertState(&domain.PortfolioState{
		AccountID:                       id,
		Date:                            "2024-03-01",
		StartingCash:                    10000,
		Balance:                         10000 * (1 + gainsPct/100),
		TotalGainsPercentage:            gainsPct,
		PreviousBalanceChangePercentage: dailyPct,
	}))

	require.NoError(t, f.ranks.Upsert(domain.RankingItem{
		AccountID: id,
		Metric:    ranking.MetricTotalGains,
		Rank:      rank,
	}))
}

func TestRebuild_TopGainersFollowGainRank(t *testing.T) {
	f := setup(t)
	f.seed(t, "acct-01", 2, 10, 1)
	f.seed(t, "acct-02", 1, 25, 2)
	f.seed(t, "acct-03", 3, 5, 3)
	f.seed(t, "acct-04", 4, -2, 4) // beyond the top-3 cut

	snapshot, err := f.svc.Rebuild()
	require.NoError(t, err)

	require.Len(t, snapshot.TopGainers, 3)
	assert.Equal(t, "acct-02", snapshot.TopGainers[0].AccountID)
	assert.Equal(t, "acct-01", snapshot.TopGainers[1].AccountID)
	assert.Equal(t, "acct-03", snapshot.TopGainers[2].AccountID)
	assert.Equal(t, 25.0, snapshot.TopGainers[0].TotalGainsPercentage)
	assert.Equal(t, "Player acct-02", snapshot.TopGainers[0].DisplayName)
}

func TestRebuild_MoverLists(t *testing.T) {
	f := setup(t)
	f.seed(t, "acct-01", 1, 10, 4.5)
	f.seed(t, "acct-02", 2, 8, -3.2)
	f.seed(t, "acct-03", 3, 6, 0)
	f.seed(t, "acct-04", 4, 4, 1.1)

	snapshot, err := f.svc.Rebuild()
	require.NoError(t, err)

	// Only positive movers qualify as best, largest first
	require.Len(t, snapshot.BestDailyChange, 2)
	assert.Equal(t, "acct-01", snapshot.BestDailyChange[0].AccountID)
	assert.Equal(t, "acct-04", snapshot.BestDailyChange[1].AccountID)

	// Worst list is simply the bottom of the distribution
	require.Len(t, snapshot.WorstDailyChange, 2)
	assert.Equal(t, "acct-02", snapshot.WorstDailyChange[0].AccountID)
	assert.Equal(t, "acct-03", snapshot.WorstDailyChange[1].AccountID)
}

func TestRebuild_PopulationStats(t *testing.T) {
	f := setup(t)
	f.seed(t, "acct-01", 1, 10, 0)
	f.seed(t, "acct-02", 2, 20, 0)
	f.seed(t, "acct-03", 3, 30, 0)

	snapshot, err := f.svc.Rebuild()
	require.NoError(t, err)

	assert.Equal(t, 3, snapshot.Stats.Accounts)
	assert.Equal(t, 20.0, snapshot.Stats.MeanGainsPct)
	assert.Equal(t, 20.0, snapshot.Stats.MedianGainsPct)
	assert.Equal(t, 10.0, snapshot.Stats.StdDevGainsPct)
}

func TestRebuild_WholesaleReplace(t *testing.T) {
	f := setup(t)
	f.seed(t, "acct-01", 1, 10, 1)

	_, err := f.svc.Rebuild()
	require.NoError(t, err)

	first, err := f.repo.Get()
	require.NoError(t, err)
	require.Len(t, first.TopGainers, 1)
	assert.Equal(t, "acct-01", first.TopGainers[0].AccountID)

	// A new leader appears; the republished snapshot must carry only the new
	// ordering, not stale rows merged with fresh ones.
	f.seed(t, "acct-02", 1, 50, 2)
	require.NoError(t, f.ranks.Upsert(domain.RankingItem{
		AccountID: "acct-01",
		Metric:    ranking.MetricTotalGains,
		Rank:      2,
	}))

	_, err = f.svc.Rebuild()
	require.NoError(t, err)

	second, err := f.repo.Get()
	require.NoError(t, err)
	require.Len(t, second.TopGainers, 2)
	assert.Equal(t, "acct-02", second.TopGainers[0].AccountID)
	assert.Equal(t, "acct-01", second.TopGainers[1].AccountID)

	var count int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM leaderboard`).Scan(&count))
	assert.Equal(t, 1, count, "exactly one snapshot row may exist")
}

func TestRebuild_EmptyPopulation(t *testing.T) {
	f := setup(t)

	snapshot, err := f.svc.Rebuild()
	require.NoError(t, err)

	assert.Empty(t, snapshot.TopGainers)
	assert.Empty(t, snapshot.BestDailyChange)
	assert.Zero(t, snapshot.Stats.Accounts)
	assert.Zero(t, snapshot.Stats.MeanGainsPct)
}

func TestGet_NotPublishedYet(t *testing.T) {
	f := setup(t)

	snapshot, err := f.svc.Get()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}
