package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/modules/trunk"
)

// RescoreCycleJob runs the periodic scoring pass: every active brain scores
// the universe and the trunk rebuilds the global ranking.
type RescoreCycleJob struct {
	refresher trunk.Refresher
	log       zerolog.Logger
}

// NewRescoreCycleJob creates a new rescore cycle job
func NewRescoreCycleJob(refresher trunk.Refresher, log zerolog.Logger) *RescoreCycleJob {
	return &RescoreCycleJob{
		refresher: refresher,
		log:       log.With().Str("job", "rescore_cycle").Logger(),
	}
}

// Name returns the job name
func (j *RescoreCycleJob) Name() string {
	return "rescore_cycle"
}

// Run executes one scoring pass
func (j *RescoreCycleJob) Run() error {
	started := time.Now()

	output, err := j.refresher.Rescore()
	if err != nil {
		return fmt.Errorf("rescore cycle failed: %w", err)
	}

	j.log.Info().
		Str("pass_id", output.PassID).
		Int("funds", output.TotalFunds).
		Dur("duration", time.Since(started)).
		Msg("Rescore cycle complete")

	return nil
}
