package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driving"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Scheduler triggers sync passes on a fixed interval.
// A tick that arrives while a pass is still running is skipped.
type Scheduler struct {
	interval   time.Duration
	runOnStart bool
	syncSvc    driving.SyncService

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. When runOnStart is set the first pass
// starts immediately instead of after one interval.
func NewScheduler(interval time.Duration, runOnStart bool, syncSvc driving.SyncService) *Scheduler {
	return &Scheduler{
		interval:   interval,
		runOnStart: runOnStart,
		syncSvc:    syncSvc,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	logger.Info("scheduler started", "interval", s.interval)
	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler and waits for a pass in progress.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	if s.runOnStart {
		s.trigger(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger runs one pass in the background unless one is already running.
func (s *Scheduler) trigger(ctx context.Context) {
	triggerPass(ctx, &s.wg, s.syncSvc, "scheduled")
}

// triggerPass starts a pass on wg unless one is already running. origin
// names the trigger in log lines.
func triggerPass(ctx context.Context, wg *sync.WaitGroup, syncSvc driving.SyncService, origin string) {
	if syncSvc.Status().Running {
		logger.Info(origin+" sync skipped", "reason", "previous pass still running")
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		summary, err := syncSvc.Run(ctx)
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			logger.Info(origin+" sync skipped", "reason", "previous pass still running")
		case err != nil:
			logger.Error(origin+" sync failed", "error", err)
		default:
			logger.Info(origin+" sync finished", "run", summary.RunID, "status", summary.Status)
		}
	}()
}
