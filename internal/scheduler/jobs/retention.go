package jobs

import (
	"context"
	"time"

	"github.com/quantlab/fairval/pkg/logger"
)

// Purger deletes records last refreshed before the cutoff.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob removes records untouched for longer than the retention
// window. Rows purged here are refetched on next demand.
type RetentionJob struct {
	purger    Purger
	retention time.Duration
	schedule  string
	log       *logger.Logger
}

func NewRetentionJob(purger Purger, retentionDays int, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		purger:    purger,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  "0 30 6 * * *", // daily at 06:30
		log:       log,
	}
}

func (j *RetentionJob) Name() string {
	return "retention_cleanup"
}

func (j *RetentionJob) Schedule() string {
	return j.schedule
}

func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.retention)

	removed, err := j.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	if removed > 0 {
		j.log.WithField("removed", removed).Info("retention cleanup finished")
	}
	return nil
}
