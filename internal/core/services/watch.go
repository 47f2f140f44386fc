package services

import (
	"context"
	"sync"

	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driving"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// WatchTrigger runs a sync pass whenever the corpus reports a change.
// A change that arrives while a pass is running is skipped; the watcher
// reports again on the next change.
type WatchTrigger struct {
	watcher driven.ChangeWatcher
	syncSvc driving.SyncService

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWatchTrigger creates a trigger fed by watcher.
func NewWatchTrigger(watcher driven.ChangeWatcher, syncSvc driving.SyncService) *WatchTrigger {
	return &WatchTrigger{watcher: watcher, syncSvc: syncSvc}
}

// Start watches until Stop is called, ctx is done or the watcher closes.
func (t *WatchTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	changes, err := t.watcher.Watch(ctx)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.running = true
	t.stopCh = make(chan struct{})
	stopCh := t.stopCh
	t.mu.Unlock()

	logger.Info("watching corpus for changes")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			triggerPass(ctx, &t.wg, t.syncSvc, "change-triggered")
		}
	}
}

// Stop ends the loop, closes the watcher and waits for a pass in progress.
func (t *WatchTrigger) Stop() error {
	t.mu.Lock()
	if t.running {
		t.running = false
		close(t.stopCh)
	}
	t.mu.Unlock()

	err := t.watcher.Close()
	t.wg.Wait()
	return err
}
