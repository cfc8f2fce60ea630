// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/pantry/jobs"
	"go.uber.org/zap"
)

// NewScheduler registers each job on a WAFFLE interval scheduler. Jobs with
// a non-positive interval or no handler are skipped with a warning, and each
// handler recovers its own panics so one bad job cannot take the process down.
// The caller starts and stops the returned scheduler.
func NewScheduler(logger *zap.Logger, js ...*jobs.ScheduledJob) (*jobs.Scheduler, error) {
	s := jobs.NewScheduler(logger)
	for _, j := range js {
		if j == nil || j.Interval <= 0 || j.Handler == nil {
			name := ""
			if j != nil {
				name = j.Name
			}
			logger.Warn("skipping invalid job", zap.String("job", name))
			continue
		}
		j.Handler = recovering(j.Name, j.Handler, logger)
		if err := s.Add(j); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func recovering(name string, h func(context.Context) error, logger *zap.Logger) func(context.Context) error {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("job panicked", zap.String("job", name), zap.Any("panic", r))
				err = fmt.Errorf("job %s panicked: %v", name, r)
			}
		}()
		return h(ctx)
	}
}
