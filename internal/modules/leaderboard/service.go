package leaderboard

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/events"
	"github.com/stockleague/engine/internal/modules/ranking"
	"github.com/stockleague/engine/pkg/formulas"
)

// Service assembles the published leaderboard from ranked portfolio states
type Service struct {
	repo             *Repository
	events           *events.Manager
	topGainersLimit  int
	dailyMoversLimit int
	now              func() time.Time
	log              zerolog.Logger
}

// NewService creates a new leaderboard service
func NewService(repo *Repository, eventManager *events.Manager, topGainersLimit, dailyMoversLimit int, log zerolog.Logger) *Service {
	return &Service{
		repo:             repo,
		events:           eventManager,
		topGainersLimit:  topGainersLimit,
		dailyMoversLimit: dailyMoversLimit,
		now:              time.Now,
		log:              log.With().Str("service", "leaderboard").Logger(),
	}
}

// Rebuild recomputes the full snapshot and publishes it as a wholesale
// replacement of the previous one. Runs after the daily ranking pass.
func (s *Service) Rebuild() (*Snapshot, error) {
	gainers, err := s.repo.TopGainers(ranking.MetricTotalGains, s.topGainersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top gainers: %w", err)
	}

	best, err := s.repo.BestMovers(s.dailyMoversLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load best movers: %w", err)
	}

	worst, err := s.repo.WorstMovers(s.dailyMoversLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load worst movers: %w", err)
	}

	gains, err := s.repo.GainPercentages()
	if err != nil {
		return nil, fmt.Errorf("failed to load gain percentages: %w", err)
	}

	now := s.now()
	snapshot := &Snapshot{
		Date:             now.Format("2006-01-02"),
		GeneratedAt:      now.Format(time.RFC3339),
		TopGainers:       gainers,
		BestDailyChange:  best,
		WorstDailyChange: worst,
		Stats: PopulationStats{
			Accounts:       len(gains),
			MeanGainsPct:   formulas.Round2(formulas.Mean(gains)),
			MedianGainsPct: formulas.Round2(formulas.Median(gains)),
			StdDevGainsPct: formulas.Round2(formulas.StdDev(gains)),
		},
	}

	if err := s.repo.Replace(snapshot); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("date", snapshot.Date).
		Int("top_gainers", len(gainers)).
		Int("accounts", snapshot.Stats.Accounts).
		Msg("Leaderboard published")
	s.events.Emit(events.LeaderboardPublished, "leaderboard", map[string]interface{}{
		"date":     snapshot.Date,
		"accounts": snapshot.Stats.Accounts,
	})

	return snapshot, nil
}

// Get returns the currently published snapshot
func (s *Service) Get() (*Snapshot, error) {
	return s.repo.Get()
}
