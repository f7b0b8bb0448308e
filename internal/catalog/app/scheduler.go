package app

import (
	"context"
	"time"

	"gocatalog_sync/internal/catalog/app/web/handlers"
	"gocatalog_sync/pkg/logger"
)

// Scheduler triggers a sync without forceRefresh on every tick. A tick that finds a
// run in progress is dropped.
type Scheduler struct {
	runner   handlers.SyncRunner
	interval time.Duration
	log      logger.Logger
}

func NewScheduler(runner handlers.SyncRunner, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, log: log.WithPrefix("[Scheduler]")}
}

// Start blocks until ctx is done. A non-positive interval disables scheduling.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.log.Log("scheduled sync every %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := s.runner.TryRun(ctx, false)
			if err != nil {
				s.log.Log("tick skipped: %s", err)
				continue
			}
			if !result.Success {
				s.log.Log("scheduled sync failed: %s", result.Error)
			}
		}
	}
}
