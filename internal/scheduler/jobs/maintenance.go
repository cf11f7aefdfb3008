package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/indexcast/pkg/logger"
)

// RunPruner 오래된 아카이브 삭제 (forecast.Repository)
type RunPruner interface {
	PruneRuns(ctx context.Context, before time.Time) (int64, error)
}

// ArchivePruneJob removes archived runs past the retention window
type ArchivePruneJob struct {
	pruner    RunPruner
	retention time.Duration
	clock     func() time.Time
	logger    *logger.Logger
}

// NewArchivePruneJob creates a new prune job
func NewArchivePruneJob(pruner RunPruner, retention time.Duration, log *logger.Logger) *ArchivePruneJob {
	if retention <= 0 {
		retention = 365 * 24 * time.Hour
	}
	return &ArchivePruneJob{
		pruner:    pruner,
		retention: retention,
		clock:     time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *ArchivePruneJob) Name() string {
	return "archive_prune"
}

// Schedule returns the cron schedule (Sunday 3 AM)
func (j *ArchivePruneJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Run executes the prune
func (j *ArchivePruneJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled archive prune")

	before := j.clock().Add(-j.retention)
	count, err := j.pruner.PruneRuns(ctx, before)
	if err != nil {
		return fmt.Errorf("prune archive: %w", err)
	}

	if count > 0 {
		j.logger.WithField("removed", count).Info("Archive prune completed")
	}

	return nil
}
