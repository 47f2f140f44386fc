package driving

import (
	"context"
	"time"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

// SyncService runs one synchronisation pass of the corpus into the index.
type SyncService interface {
	// Run executes a full pass. The summary is always returned for a pass
	// that started; the error is non-nil only when the run failed (discovery
	// failure or cancellation). A call made while another pass is running
	// returns domain.ErrSyncInProgress and no summary.
	Run(ctx context.Context) (*domain.RunSummary, error)

	// Status reports the pass in progress, if any, and the last finished one.
	Status() SyncStatus
}

// SyncStatus is a point-in-time view of the sync service.
type SyncStatus struct {
	Running   bool               `json:"running"`
	RunID     string             `json:"runId,omitempty"`
	State     domain.RunState    `json:"state,omitempty"`
	StartedAt time.Time          `json:"startedAt,omitzero"`
	Last      *domain.RunSummary `json:"last,omitempty"`
}
