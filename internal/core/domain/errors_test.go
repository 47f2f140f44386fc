package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	for _, err := range []error{
		ErrInvalidInput, ErrUnsupportedType, ErrNotExportable, ErrContentTooLarge,
		ErrLengthMismatch, ErrDimensionMismatch, ErrRunCancelled, ErrNotFound,
		ErrPermanent, ErrSyncInProgress,
	} {
		assert.NotEmpty(t, err.Error())
	}
}

func TestTypedErrors_Unwrap(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
	}{
		{"discovery", &DiscoveryError{Root: "root", Err: cause}},
		{"extraction", &ExtractionError{DocumentID: "d", DocumentName: "n", Err: cause}},
		{"chunking", &ChunkingError{DocumentID: "d", Err: cause}},
		{"batch", &BatchError{Stage: KindEmbeddingBatch, Batch: 1, Size: 5, Attempts: 1, Err: cause}},
		{"reconcile", &ReconcileError{DocumentID: "d", IDs: 2, Err: cause}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, cause)
			assert.Contains(t, tt.err.Error(), "boom")
		})
	}
}

func TestBatchError_Message(t *testing.T) {
	err := &BatchError{Stage: KindUpsertBatch, Batch: 2, Size: 100, Attempts: 3, Err: errors.New("unavailable")}
	assert.Equal(t, "upsert_batch batch 2 (100 items, 3 attempts): unavailable", err.Error())

	rejected := &BatchError{Stage: KindUpsertBatch, Batch: 0, Size: 4, Err: ErrDimensionMismatch}
	assert.Equal(t, "upsert_batch batch 0 (4 items, not sent): vector dimension mismatch", rejected.Error())
}

func TestThrottledError(t *testing.T) {
	cause := errors.New("429")
	err := fmt.Errorf("upsert: %w", &ThrottledError{RetryAfter: 2 * time.Second, Err: cause})

	var te *ThrottledError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, 2*time.Second, te.RetryAfter)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "retry after 2s")
	assert.Equal(t, "throttled: 429", (&ThrottledError{Err: cause}).Error())
}
