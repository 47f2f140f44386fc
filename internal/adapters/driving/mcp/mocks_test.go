package mcp

import (
	"context"
	"time"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driving"
)

// mockSyncService is a mock implementation of driving.SyncService.
type mockSyncService struct {
	summary *domain.RunSummary
	err     error
	status  driving.SyncStatus
	calls   int
}

func (m *mockSyncService) Run(_ context.Context) (*domain.RunSummary, error) {
	m.calls++
	return m.summary, m.err
}

func (m *mockSyncService) Status() driving.SyncStatus {
	return m.status
}

func testSummary(status domain.RunStatus) *domain.RunSummary {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.RunSummary{
		RunID:               "run-1",
		Status:              status,
		State:               domain.StateCompleted,
		StartedAt:           start,
		FinishedAt:          start.Add(time.Minute),
		DocumentsDiscovered: 5,
		DocumentsProcessed:  4,
		DocumentsSkipped:    []domain.SkippedDocument{{ID: "x", Reason: domain.ReasonUnsupportedType}},
		ChunksGenerated:     20,
		ChunksEmbedded:      20,
		RecordsUpserted:     20,
		Errors:              []domain.RunError{},
	}
}
