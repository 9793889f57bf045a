// Package scheduler runs the periodic background sync.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"personal-organizer/backend/internal/logger"
	"personal-organizer/backend/internal/service"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers a full sync pass on a fixed interval
type Scheduler struct {
	cron        *cron.Cron
	syncService *service.SyncService
	interval    time.Duration
}

// NewScheduler creates a scheduler that syncs every interval
func NewScheduler(syncService *service.SyncService, interval time.Duration) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		syncService: syncService,
		interval:    interval,
	}
}

// Start registers the sync job and starts the cron loop
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		logger.Info().Msg("Running scheduled sync")
		s.syncService.SyncAll(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule sync job: %w", err)
	}

	s.cron.Start()
	logger.Info().Dur("interval", s.interval).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop; running jobs finish first
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Scheduler stopped")
}

// Entries returns the scheduled jobs
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}
