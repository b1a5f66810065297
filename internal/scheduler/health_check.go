package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/fund-trader/internal/database"
)

// HealthCheckJob runs periodic integrity checks on the main database
type HealthCheckJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewHealthCheckJob creates a new health check job
func NewHealthCheckJob(db *database.DB, log zerolog.Logger) *HealthCheckJob {
	return &HealthCheckJob{
		db:  db,
		log: log.With().Str("job", "health_check").Logger(),
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Run checks database integrity and connectivity
func (j *HealthCheckJob) Run() error {
	var result string
	if err := j.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		j.log.Error().Str("result", result).Msg("Database integrity check failed")
		return fmt.Errorf("database integrity check failed: %s", result)
	}

	var funds int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM funds").Scan(&funds); err != nil {
		return fmt.Errorf("fund count query failed: %w", err)
	}

	j.log.Debug().Int("funds", funds).Msg("Health check passed")
	return nil
}
