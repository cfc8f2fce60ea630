// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/waffle/pantry/jobs"
	"go.uber.org/zap"
)

// Purger deletes expired rows and reports how many went.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StateCleaner deletes expired OAuth states.
type StateCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// AuthTokenPurgeJob removes expired verification and reset tokens.
// The TTL index does the same eventually; this keeps lookups small between TTL passes.
func AuthTokenPurgeJob(tokens Purger, logger *zap.Logger) *jobs.ScheduledJob {
	return &jobs.ScheduledJob{
		Name:     "auth-token-purge",
		Interval: 15 * time.Minute,
		Timeout:  time.Minute,
		Handler: func(ctx context.Context) error {
			count, err := tokens.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("purged expired auth tokens", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(stateStore StateCleaner, logger *zap.Logger) *jobs.ScheduledJob {
	return &jobs.ScheduledJob{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Timeout:  time.Minute,
		Handler: func(ctx context.Context) error {
			count, err := stateStore.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}
