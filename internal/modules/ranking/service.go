package ranking

import (
	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/domain"
	"github.com/stockleague/engine/internal/events"
)

// StateSource reads the full persisted portfolio population
type StateSource interface {
	GetAllStates() ([]domain.PortfolioState, error)
}

// Service recomputes every ranking dimension over the whole population.
// This is deliberately non-incremental: an O(N log N) full re-sort on a
// coarse schedule is simpler and safer than tracking deltas.
type Service struct {
	states StateSource
	repo   *Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewService creates a new ranking service
func NewService(states StateSource, repo *Repository, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		states: states,
		repo:   repo,
		events: eventManager,
		log:    log.With().Str("service", "ranking").Logger(),
	}
}

// Report summarizes one ranking pass
type Report struct {
	Ranked        int `json:"ranked"`
	WriteFailures int `json:"write_failures"`
}

// Run ranks the population on every metric and persists the results.
// A failed row write is logged and skipped; the pass always completes.
func (s *Service) Run() (*Report, error) {
	states, err := s.states.GetAllStates()
	if err != nil {
		return nil, err
	}

	report := &Report{}

	for _, metric := range []string{MetricTotalGains, MetricDailyChange} {
		entries := make([]Entry, 0, len(states))
		for _, state := range states {
			entries = append(entries, Entry{
				AccountID: state.AccountID,
				Value:     metricValue(state, metric),
			})
		}

		previous, err := s.repo.GetAll(metric)
		if err != nil {
			return nil, err
		}

		items := Rank(entries, previous, metric)
		for _, item := range items {
			if err := s.repo.Upsert(item); err != nil {
				report.WriteFailures++
				s.log.Error().Err(err).
					Str("account_id", item.AccountID).
					Str("metric", metric).
					Msg("Failed to persist ranking, continuing with remaining accounts")
				continue
			}
			report.Ranked++
		}
	}

	s.log.Info().
		Int("accounts", len(states)).
		Int("ranked", report.Ranked).
		Int("write_failures", report.WriteFailures).
		Msg("Ranking pass completed")
	s.events.Emit(events.RankingComplete, "ranking", map[string]interface{}{
		"accounts":       len(states),
		"write_failures": report.WriteFailures,
	})

	return report, nil
}

func metricValue(state domain.PortfolioState, metric string) float64 {
	switch metric {
	case MetricDailyChange:
		return state.PreviousBalanceChangePercentage
	default:
		return state.TotalGainsPercentage
	}
}
