package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// EmbedResult is the outcome of the embedding stage.
type EmbedResult struct {
	// Vectors holds the embeddings of every chunk whose batch succeeded,
	// in chunk order.
	Vectors []domain.EmbeddingVector

	// Failures holds one error per failed batch.
	Failures []*domain.BatchError

	// Calls is the number of embedding requests issued.
	Calls int
}

// EmbedStage turns chunks into vectors in bounded batches.
type EmbedStage struct {
	svc         driven.EmbeddingService
	limiter     driven.RateLimiter
	batchSize   int
	maxBytes    int
	concurrency int
}

// NewEmbedStage creates an embedding stage. limiter may be nil.
// Batches hold at most batchSize chunks and, when maxBytes > 0, at most
// maxBytes of chunk text.
func NewEmbedStage(svc driven.EmbeddingService, limiter driven.RateLimiter, batchSize, maxBytes, concurrency int) *EmbedStage {
	if concurrency < 1 {
		concurrency = 1
	}
	return &EmbedStage{
		svc:         svc,
		limiter:     limiter,
		batchSize:   batchSize,
		maxBytes:    maxBytes,
		concurrency: concurrency,
	}
}

// Embed embeds chunks batch by batch. A failed batch excludes its chunks
// from the result and is recorded; the remaining batches still run.
// The returned error is non-nil only when ctx ended before every batch was
// issued.
func (s *EmbedStage) Embed(ctx context.Context, chunks []domain.TextChunk) (*EmbedResult, error) {
	batches := partition(chunks, s.batchSize, s.maxBytes, func(c domain.TextChunk) int {
		return len(c.Text)
	})

	type outcome struct {
		vectors [][]float32
		err     error
		done    bool
	}
	outcomes := make([]outcome, len(batches))

	var (
		g     errgroup.Group
		calls atomic.Int64
	)
	g.SetLimit(s.concurrency)
	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			vectors, called, err := s.embedBatch(ctx, batch)
			if called {
				calls.Add(1)
			}
			outcomes[i] = outcome{vectors: vectors, err: err, done: true}
			return nil
		})
	}
	_ = g.Wait()

	result := &EmbedResult{Calls: int(calls.Load())}
	for i, o := range outcomes {
		if !o.done {
			continue
		}
		if o.err != nil {
			if ctx.Err() != nil && errors.Is(o.err, ctx.Err()) {
				continue
			}
			failure := &domain.BatchError{
				Stage:    domain.KindEmbeddingBatch,
				Batch:    i,
				Size:     len(batches[i]),
				Attempts: 1,
				Err:      o.err,
			}
			logger.Warn("embedding batch failed", "batch", i, "size", failure.Size, "error", o.err)
			result.Failures = append(result.Failures, failure)
			continue
		}
		for j, chunk := range batches[i] {
			result.Vectors = append(result.Vectors, domain.EmbeddingVector{
				ChunkID:    chunk.ID(),
				DocumentID: chunk.DocumentID,
				Vector:     o.vectors[j],
			})
		}
	}

	logger.Info("embedding stage finished",
		"chunks", len(chunks), "batches", len(batches), "calls", result.Calls,
		"embedded", len(result.Vectors), "failed_batches", len(result.Failures))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// embedBatch issues one request and validates that the response is aligned
// with the request. called reports whether the request was sent.
func (s *EmbedStage) embedBatch(ctx context.Context, batch []domain.TextChunk) (vectors [][]float32, called bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, false, err
		}
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err = s.svc.EmbedBatch(ctx, texts)
	if err != nil {
		noteThrottle(s.limiter, err)
		return nil, true, err
	}
	if len(vectors) != len(texts) {
		return nil, true, fmt.Errorf("%w: sent %d texts, got %d vectors", domain.ErrLengthMismatch, len(texts), len(vectors))
	}
	if dim := s.svc.Dimensions(); dim > 0 {
		for i, v := range vectors {
			if len(v) != dim {
				return nil, true, fmt.Errorf("%w: vector %d has %d values, model declares %d",
					domain.ErrDimensionMismatch, i, len(v), dim)
			}
		}
	}
	return vectors, true, nil
}

// noteThrottle pauses a limiter that supports it after a throttled call.
func noteThrottle(limiter driven.RateLimiter, err error) {
	var te *domain.ThrottledError
	if !errors.As(err, &te) {
		return
	}
	if t, ok := limiter.(driven.Throttler); ok {
		t.Backoff(te.RetryAfter)
	}
}
