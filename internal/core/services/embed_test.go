package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

func makeChunks(docID string, n int) []domain.TextChunk {
	chunks := make([]domain.TextChunk, n)
	for i := range chunks {
		chunks[i] = domain.TextChunk{DocumentID: docID, Ordinal: i, Text: fmt.Sprintf("chunk %d", i)}
	}
	return chunks
}

// countingLimiter implements driven.RateLimiter and driven.Throttler.
type countingLimiter struct {
	waits    atomic.Int64
	mu       sync.Mutex
	backoffs []time.Duration
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits.Add(1)
	return ctx.Err()
}

func (l *countingLimiter) Backoff(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoffs = append(l.backoffs, d)
}

func TestEmbedStage_BatchSizing(t *testing.T) {
	tests := []struct {
		n, batch, wantCalls int
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{12, 5, 3},
		{100, 250, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.n, tt.batch), func(t *testing.T) {
			emb := &fakeEmbedder{dim: 4}
			limiter := &countingLimiter{}
			stage := NewEmbedStage(emb, limiter, tt.batch, 0, 1)

			res, err := stage.Embed(context.Background(), makeChunks("d", tt.n))
			require.NoError(t, err)

			assert.Equal(t, tt.wantCalls, res.Calls)
			assert.Equal(t, tt.wantCalls, emb.callCount())
			assert.Equal(t, int64(tt.wantCalls), limiter.waits.Load())
			assert.Len(t, res.Vectors, tt.n)
			for _, call := range emb.calls {
				assert.LessOrEqual(t, len(call), tt.batch)
			}
		})
	}
}

func TestEmbedStage_VectorsAlignedWithChunks(t *testing.T) {
	emb := &fakeEmbedder{dim: 2}
	chunks := []domain.TextChunk{
		{DocumentID: "a", Ordinal: 0, Text: "x"},
		{DocumentID: "a", Ordinal: 1, Text: "xyz"},
		{DocumentID: "b", Ordinal: 0, Text: "xy"},
	}

	res, err := NewEmbedStage(emb, nil, 2, 0, 2).Embed(context.Background(), chunks)
	require.NoError(t, err)

	require.Len(t, res.Vectors, 3)
	assert.Equal(t, domain.EmbeddingVector{ChunkID: "a_0", DocumentID: "a", Vector: []float32{1, 1}}, res.Vectors[0])
	assert.Equal(t, domain.EmbeddingVector{ChunkID: "a_1", DocumentID: "a", Vector: []float32{3, 3}}, res.Vectors[1])
	assert.Equal(t, domain.EmbeddingVector{ChunkID: "b_0", DocumentID: "b", Vector: []float32{2, 2}}, res.Vectors[2])
}

func TestEmbedStage_FailedBatchIsExcluded(t *testing.T) {
	emb := &fakeEmbedder{dim: 2}
	emb.fail = func(_ int, texts []string) error {
		if texts[0] == "chunk 2" {
			return errors.New("provider timeout")
		}
		return nil
	}

	res, err := NewEmbedStage(emb, nil, 2, 0, 1).Embed(context.Background(), makeChunks("d", 6))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Calls)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, domain.KindEmbeddingBatch, res.Failures[0].Stage)
	assert.Equal(t, 1, res.Failures[0].Batch)
	assert.Equal(t, 2, res.Failures[0].Size)
	assert.Equal(t, 1, res.Failures[0].Attempts)

	var ids []string
	for _, v := range res.Vectors {
		ids = append(ids, v.ChunkID)
	}
	assert.Equal(t, []string{"d_0", "d_1", "d_4", "d_5"}, ids)
}

func TestEmbedStage_LengthMismatch(t *testing.T) {
	emb := &fakeEmbedder{dim: 2, short: true}

	res, err := NewEmbedStage(emb, nil, 5, 0, 1).Embed(context.Background(), makeChunks("d", 3))
	require.NoError(t, err)

	assert.Empty(t, res.Vectors)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], domain.ErrLengthMismatch)
}

func TestEmbedStage_DimensionMismatch(t *testing.T) {
	emb := &fakeEmbedder{dim: 768, wrongDim: 512}

	res, err := NewEmbedStage(emb, nil, 5, 0, 1).Embed(context.Background(), makeChunks("d", 2))
	require.NoError(t, err)

	assert.Empty(t, res.Vectors)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], domain.ErrDimensionMismatch)
}

func TestEmbedStage_ByteCap(t *testing.T) {
	emb := &fakeEmbedder{dim: 1}
	chunks := makeChunks("d", 4) // "chunk N" is 7 bytes

	res, err := NewEmbedStage(emb, nil, 10, 14, 1).Embed(context.Background(), chunks)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Calls)
	assert.Len(t, res.Vectors, 4)
}

func TestEmbedStage_ThrottleBacksOffLimiter(t *testing.T) {
	emb := &fakeEmbedder{dim: 1}
	emb.fail = func(call int, _ []string) error {
		if call == 0 {
			return &domain.ThrottledError{RetryAfter: 3 * time.Second, Err: errors.New("429")}
		}
		return nil
	}
	limiter := &countingLimiter{}

	res, err := NewEmbedStage(emb, limiter, 1, 0, 1).Embed(context.Background(), makeChunks("d", 2))
	require.NoError(t, err)

	assert.Len(t, res.Failures, 1)
	assert.Len(t, res.Vectors, 1)
	assert.Equal(t, []time.Duration{3 * time.Second}, limiter.backoffs)
}

func TestEmbedStage_ConcurrencyBounded(t *testing.T) {
	var inFlight, peak atomic.Int64
	emb := &fakeEmbedder{dim: 1}
	emb.fail = func(int, []string) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	res, err := NewEmbedStage(emb, nil, 1, 0, 3).Embed(context.Background(), makeChunks("d", 12))
	require.NoError(t, err)

	assert.Len(t, res.Vectors, 12)
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestEmbedStage_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emb := &fakeEmbedder{dim: 1}

	res, err := NewEmbedStage(emb, nil, 1, 0, 1).Embed(ctx, makeChunks("d", 3))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Calls)
	assert.Empty(t, res.Failures)
}
