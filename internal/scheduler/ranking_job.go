package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/modules/leaderboard"
	"github.com/stockleague/engine/internal/modules/ranking"
)

// RankingJob runs the nightly ranking pass and republishes the leaderboard
type RankingJob struct {
	ranking     *ranking.Service
	leaderboard *leaderboard.Service
	log         zerolog.Logger
}

// NewRankingJob creates a new ranking job
func NewRankingJob(rankingService *ranking.Service, leaderboardService *leaderboard.Service, log zerolog.Logger) *RankingJob {
	return &RankingJob{
		ranking:     rankingService,
		leaderboard: leaderboardService,
		log:         log.With().Str("job", "ranking").Logger(),
	}
}

// Name returns the job name
func (j *RankingJob) Name() string {
	return "ranking_pass"
}

// Run ranks the population, then rebuilds the published leaderboard
func (j *RankingJob) Run() error {
	report, err := j.ranking.Run()
	if err != nil {
		return err
	}

	if _, err := j.leaderboard.Rebuild(); err != nil {
		return err
	}

	j.log.Info().
		Int("ranked", report.Ranked).
		Int("write_failures", report.WriteFailures).
		Msg("Ranking and leaderboard refresh completed")
	return nil
}
