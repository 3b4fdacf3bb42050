// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RefreshJobName is the name the domain refresh job registers under.
const RefreshJobName = "domain-refresh"

// Refresher reloads every configured domain. A non-nil error means at least
// one domain failed; the others were still applied.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// RefreshJob creates a job that reloads the domain record sets on interval.
func RefreshJob(r Refresher, interval, timeout time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     RefreshJobName,
		Interval: interval,
		Timeout:  timeout,
		Run: func(ctx context.Context) error {
			if err := r.RefreshAll(ctx); err != nil {
				if ctx.Err() == nil {
					logger.Warn("domain refresh incomplete", zap.Error(err))
				}
				return err
			}
			return nil
		},
	}
}
