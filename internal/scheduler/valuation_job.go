package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/modules/valuation"
)

// ValuationJob drives the batch valuation loop on a cron schedule. Each tick
// runs a single batch; the selection query is the cursor, so whatever the
// previous tick left pending is picked up automatically.
type ValuationJob struct {
	service *valuation.Service
	window  *Window
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewValuationJob creates a new valuation job
func NewValuationJob(service *valuation.Service, window *Window, log zerolog.Logger) *ValuationJob {
	return &ValuationJob{
		service: service,
		window:  window,
		timeout: 10 * time.Minute,
		now:     time.Now,
		log:     log.With().Str("job", "valuation").Logger(),
	}
}

// Name returns the job name
func (j *ValuationJob) Name() string {
	return "valuation_batch"
}

// Run executes one valuation batch if inside the maintenance window
func (j *ValuationJob) Run() error {
	if !j.window.Contains(j.now()) {
		j.log.Debug().Msg("Outside valuation window, skipping tick")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	report, err := j.service.RunBatch(ctx)
	if err != nil {
		return err
	}

	if report.Done {
		j.log.Debug().Str("date", report.Date).Msg("Valuation day already converged")
	}
	return nil
}
