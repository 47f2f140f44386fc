package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

func makeVectors(docID string, n, dim int) []domain.EmbeddingVector {
	out := make([]domain.EmbeddingVector, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(i)
		}
		out[i] = domain.EmbeddingVector{ChunkID: domain.ChunkID(docID, i), DocumentID: docID, Vector: v}
	}
	return out
}

// recordingSleep captures requested pauses without sleeping.
type recordingSleep struct {
	pauses []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.pauses = append(r.pauses, d)
	return nil
}

func TestUpsertStage_Batches(t *testing.T) {
	idx := newFakeIndex(2)
	stage := NewUpsertStage(idx, nil, 4, 0, WithSleep(noSleep))

	res, err := stage.Upsert(context.Background(), makeVectors("d", 10, 2))
	require.NoError(t, err)

	assert.Equal(t, 10, res.Upserted)
	assert.Equal(t, 3, res.Calls)
	assert.Equal(t, map[string]int{"d": 10}, res.UpsertedByDoc)
	assert.Empty(t, res.Failures)
	assert.Len(t, idx.ids(), 10)
}

func TestUpsertStage_ByteCap(t *testing.T) {
	idx := newFakeIndex(4)
	// "d_0" is 3 bytes + 16 bytes of vector = 19 bytes per record.
	stage := NewUpsertStage(idx, nil, 100, 40, WithSleep(noSleep))

	res, err := stage.Upsert(context.Background(), makeVectors("d", 5, 4))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Calls)
	assert.Equal(t, 5, res.Upserted)
}

func TestUpsertStage_RetriesTransientFailure(t *testing.T) {
	idx := newFakeIndex(2)
	idx.upsertErrs = []error{errors.New("503 unavailable")}
	rec := &recordingSleep{}
	stage := NewUpsertStage(idx, nil, 10, 0,
		WithSleep(rec.sleep),
		WithBackoff(gax.Backoff{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 2}))

	res, err := stage.Upsert(context.Background(), makeVectors("d", 3, 2))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Upserted)
	assert.Equal(t, 2, res.Calls)
	assert.Empty(t, res.Failures)
	assert.Len(t, rec.pauses, 1)
	assert.LessOrEqual(t, rec.pauses[0], time.Millisecond)
}

func TestUpsertStage_ExhaustsAttempts(t *testing.T) {
	idx := newFakeIndex(2)
	idx.upsertErrs = []error{errors.New("a"), errors.New("b"), errors.New("c"), errors.New("d")}
	rec := &recordingSleep{}
	stage := NewUpsertStage(idx, nil, 10, 0, WithSleep(rec.sleep), WithAttempts(3))

	res, err := stage.Upsert(context.Background(), makeVectors("d", 2, 2))
	require.NoError(t, err)

	assert.Zero(t, res.Upserted)
	assert.Equal(t, 3, res.Calls)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, domain.KindUpsertBatch, res.Failures[0].Stage)
	assert.Equal(t, 3, res.Failures[0].Attempts)
	assert.EqualError(t, res.Failures[0].Err, "c")
	assert.Len(t, rec.pauses, 2)
}

func TestUpsertStage_PermanentFailureNotRetried(t *testing.T) {
	idx := newFakeIndex(2)
	idx.upsertErrs = []error{fmt.Errorf("%w: 400 bad request", domain.ErrPermanent)}
	stage := NewUpsertStage(idx, nil, 10, 0, WithSleep(noSleep))

	res, err := stage.Upsert(context.Background(), makeVectors("d", 2, 2))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Calls)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Attempts)
	assert.ErrorIs(t, res.Failures[0], domain.ErrPermanent)
}

func TestUpsertStage_DimensionCheckedBeforeWrite(t *testing.T) {
	idx := newFakeIndex(768)
	stage := NewUpsertStage(idx, nil, 10, 0, WithSleep(noSleep))

	res, err := stage.Upsert(context.Background(), makeVectors("d", 2, 512))
	require.NoError(t, err)

	assert.Zero(t, idx.upsertCalls)
	assert.Zero(t, res.Calls)
	require.Len(t, res.Failures, 1)
	assert.Zero(t, res.Failures[0].Attempts, "rejected batches are never sent")
	assert.ErrorIs(t, res.Failures[0], domain.ErrDimensionMismatch)
	assert.Contains(t, res.Failures[0].Error(), "not sent")
}

func TestUpsertStage_ThrottledUsesRetryAfter(t *testing.T) {
	idx := newFakeIndex(1)
	idx.upsertErrs = []error{&domain.ThrottledError{RetryAfter: 10 * time.Second, Err: errors.New("429")}}
	rec := &recordingSleep{}
	limiter := &countingLimiter{}
	stage := NewUpsertStage(idx, limiter, 10, 0, WithSleep(rec.sleep))

	res, err := stage.Upsert(context.Background(), makeVectors("d", 1, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Upserted)
	assert.Equal(t, []time.Duration{10 * time.Second}, rec.pauses)
	assert.Equal(t, []time.Duration{10 * time.Second}, limiter.backoffs)
	assert.Equal(t, int64(2), limiter.waits.Load())
}

func TestUpsertStage_FailureIsolatedToBatch(t *testing.T) {
	idx := newFakeIndex(1)
	idx.upsertErrs = []error{nil, fmt.Errorf("%w: rejected", domain.ErrPermanent)}
	stage := NewUpsertStage(idx, nil, 2, 0, WithSleep(noSleep))

	res, err := stage.Upsert(context.Background(), makeVectors("d", 6, 1))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Upserted)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Batch)
	assert.ElementsMatch(t, []string{"d_0", "d_1", "d_4", "d_5"}, idx.ids())
}

func TestUpsertStage_Idempotent(t *testing.T) {
	idx := newFakeIndex(2)
	stage := NewUpsertStage(idx, nil, 3, 0, WithSleep(noSleep))
	vectors := makeVectors("d", 5, 2)

	_, err := stage.Upsert(context.Background(), vectors)
	require.NoError(t, err)
	once := map[string][]float32{}
	for k, v := range idx.records {
		once[k] = v
	}

	_, err = stage.Upsert(context.Background(), vectors)
	require.NoError(t, err)
	assert.Equal(t, once, idx.records)
}

func TestUpsertStage_CancelledDuringBackoff(t *testing.T) {
	idx := newFakeIndex(1)
	idx.upsertErrs = []error{errors.New("503")}
	ctx, cancel := context.WithCancel(context.Background())
	stage := NewUpsertStage(idx, nil, 10, 0, WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	res, err := stage.Upsert(ctx, makeVectors("d", 1, 1))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Failures)
	assert.Zero(t, res.Upserted)
}

func TestRetryable(t *testing.T) {
	ctx := context.Background()
	assert.True(t, retryable(ctx, errors.New("503")))
	assert.True(t, retryable(ctx, &domain.ThrottledError{Err: errors.New("429")}))
	assert.False(t, retryable(ctx, fmt.Errorf("x: %w", domain.ErrPermanent)))
	assert.False(t, retryable(ctx, fmt.Errorf("x: %w", domain.ErrDimensionMismatch)))
	assert.False(t, retryable(ctx, fmt.Errorf("x: %w", domain.ErrInvalidInput)))
	assert.False(t, retryable(ctx, context.Canceled))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, retryable(cancelled, errors.New("503")))
}
