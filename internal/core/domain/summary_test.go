package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunError(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
		wantDoc  string
		wantBat  bool
	}{
		{"discovery", &DiscoveryError{Root: "r", Err: cause}, KindDiscovery, "", false},
		{"extraction", &ExtractionError{DocumentID: "d1", DocumentName: "a.pdf", Err: cause}, KindExtraction, "d1", false},
		{"chunking", &ChunkingError{DocumentID: "d2", Err: cause}, KindChunking, "d2", false},
		{"embedding batch", &BatchError{Stage: KindEmbeddingBatch, Batch: 3, Err: cause}, KindEmbeddingBatch, "", true},
		{"upsert batch", &BatchError{Stage: KindUpsertBatch, Batch: 0, Attempts: 3, Err: cause}, KindUpsertBatch, "", true},
		{"reconcile", &ReconcileError{DocumentID: "d3", Err: cause}, KindReconcile, "d3", false},
		{"cancelled", fmt.Errorf("%w: %w", ErrRunCancelled, context.Canceled), KindCancelled, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := NewRunError(tt.err)
			assert.Equal(t, tt.wantKind, re.Kind)
			assert.Equal(t, tt.wantDoc, re.DocumentID)
			assert.Equal(t, tt.wantBat, re.Batch != nil)
			assert.NotEmpty(t, re.Message)
		})
	}
}

func TestNewRunError_BatchIndexCopied(t *testing.T) {
	be := &BatchError{Stage: KindEmbeddingBatch, Batch: 7, Err: errors.New("x")}
	re := NewRunError(be)
	be.Batch = 9
	require.NotNil(t, re.Batch)
	assert.Equal(t, 7, *re.Batch)
}

func TestRunSummary_Finish(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("completed", func(t *testing.T) {
		s := &RunSummary{DocumentsDiscovered: 3}
		s.Skip(SourceDocument{ID: "doc2"}, ReasonUnsupportedType)
		s.Finish(StateCompleted, now)
		assert.Equal(t, StatusCompleted, s.Status)
		assert.Equal(t, StateCompleted, s.State)
		assert.Equal(t, now, s.FinishedAt)
		assert.False(t, s.Failed())
	})

	t.Run("completed with errors", func(t *testing.T) {
		s := &RunSummary{}
		s.AddError(&BatchError{Stage: KindEmbeddingBatch, Err: errors.New("x")})
		s.Finish(StateCompleted, now)
		assert.Equal(t, StatusCompletedWithErrors, s.Status)
	})

	t.Run("failed", func(t *testing.T) {
		s := &RunSummary{}
		s.AddError(&DiscoveryError{Root: "r", Err: errors.New("x")})
		s.Finish(StateFailed, now)
		assert.Equal(t, StatusFailed, s.Status)
		assert.True(t, s.Failed())
	})
}
