package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/googleapis/gax-go/v2"
	"golang.org/x/sync/errgroup"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// DefaultUpsertAttempts is the number of calls made for a batch before it is
// recorded as failed.
const DefaultUpsertAttempts = 3

// DefaultBackoff is the pause schedule between upsert attempts.
func DefaultBackoff() gax.Backoff {
	return gax.Backoff{Initial: time.Second, Max: 30 * time.Second, Multiplier: 2}
}

// UpsertResult is the outcome of the index-write stage.
type UpsertResult struct {
	// Upserted is the number of records written.
	Upserted int

	// UpsertedByDoc counts written records per document.
	UpsertedByDoc map[string]int

	// Failures holds one error per batch that exhausted its attempts.
	Failures []*domain.BatchError

	// Calls is the number of upsert requests issued, retries included.
	Calls int
}

// UpsertStage writes vectors into the index in bounded batches with retry.
type UpsertStage struct {
	index       driven.VectorIndex
	limiter     driven.RateLimiter
	batchSize   int
	maxBytes    int
	attempts    int
	concurrency int
	backoff     gax.Backoff
	sleep       func(ctx context.Context, d time.Duration) error
}

// UpsertOption configures an UpsertStage.
type UpsertOption func(*UpsertStage)

// WithAttempts sets how many calls are made per batch.
func WithAttempts(n int) UpsertOption {
	return func(s *UpsertStage) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithBackoff sets the pause schedule between attempts.
func WithBackoff(b gax.Backoff) UpsertOption {
	return func(s *UpsertStage) { s.backoff = b }
}

// WithUpsertConcurrency sets how many batches are written at once.
func WithUpsertConcurrency(n int) UpsertOption {
	return func(s *UpsertStage) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSleep replaces the pause between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) UpsertOption {
	return func(s *UpsertStage) { s.sleep = sleep }
}

// NewUpsertStage creates an index-write stage. limiter may be nil.
// Batches hold at most batchSize records and, when maxBytes > 0, at most
// maxBytes of estimated request payload.
func NewUpsertStage(index driven.VectorIndex, limiter driven.RateLimiter, batchSize, maxBytes int, opts ...UpsertOption) *UpsertStage {
	s := &UpsertStage{
		index:       index,
		limiter:     limiter,
		batchSize:   batchSize,
		maxBytes:    maxBytes,
		attempts:    DefaultUpsertAttempts,
		concurrency: 1,
		backoff:     DefaultBackoff(),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recordSize estimates the request bytes of one record.
func recordSize(v domain.EmbeddingVector) int {
	return len(v.ChunkID) + 4*len(v.Vector)
}

// Upsert writes vectors. Each failed batch is retried with back-off and, once
// its attempts are exhausted, recorded; the remaining batches still run.
// The returned error is non-nil only when ctx ended before every batch was
// written.
func (s *UpsertStage) Upsert(ctx context.Context, vectors []domain.EmbeddingVector) (*UpsertResult, error) {
	batches := partition(vectors, s.batchSize, s.maxBytes, recordSize)

	type outcome struct {
		attempts int
		err      error
		done     bool
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
			attempts, err := s.upsertBatch(ctx, i, batch)
			calls.Add(int64(attempts))
			outcomes[i] = outcome{attempts: attempts, err: err, done: true}
			return nil
		})
	}
	_ = g.Wait()

	result := &UpsertResult{
		UpsertedByDoc: make(map[string]int),
		Calls:         int(calls.Load()),
	}
	for i, o := range outcomes {
		if !o.done {
			continue
		}
		if o.err != nil {
			if ctx.Err() != nil && errors.Is(o.err, ctx.Err()) {
				continue
			}
			failure := &domain.BatchError{
				Stage:    domain.KindUpsertBatch,
				Batch:    i,
				Size:     len(batches[i]),
				Attempts: o.attempts,
				Err:      o.err,
			}
			logger.Warn("upsert batch failed",
				"batch", i, "size", failure.Size, "attempts", o.attempts, "error", o.err)
			result.Failures = append(result.Failures, failure)
			continue
		}
		for _, v := range batches[i] {
			result.UpsertedByDoc[v.DocumentID]++
		}
		result.Upserted += len(batches[i])
	}

	logger.Info("upsert stage finished",
		"index", s.index.Name(), "records", len(vectors), "batches", len(batches),
		"calls", result.Calls, "upserted", result.Upserted, "failed_batches", len(result.Failures))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// upsertBatch writes one batch, retrying transient failures. It returns the
// number of calls made and the last error. A batch whose vectors do not match
// the index dimension is rejected with zero calls.
func (s *UpsertStage) upsertBatch(ctx context.Context, batchIdx int, batch []domain.EmbeddingVector) (int, error) {
	if dim := s.index.Dimensions(); dim > 0 {
		for _, v := range batch {
			if len(v.Vector) != dim {
				return 0, fmt.Errorf("%w: record %s has %d values, index expects %d",
					domain.ErrDimensionMismatch, v.ChunkID, len(v.Vector), dim)
			}
		}
	}

	records := make([]domain.IndexRecord, len(batch))
	for i, v := range batch {
		records[i] = v.Record()
	}

	bo := s.backoff
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return attempt - 1, cerr
		}
		if s.limiter != nil {
			if werr := s.limiter.Wait(ctx); werr != nil {
				return attempt - 1, werr
			}
		}

		err = s.index.Upsert(ctx, records)
		if err == nil {
			return attempt, nil
		}
		noteThrottle(s.limiter, err)
		if !retryable(ctx, err) || attempt == s.attempts {
			return attempt, err
		}

		pause := bo.Pause()
		var te *domain.ThrottledError
		if errors.As(err, &te) && te.RetryAfter > pause {
			pause = te.RetryAfter
		}
		logger.Debug("retrying upsert batch", "batch", batchIdx, "attempt", attempt, "pause", pause, "error", err)
		if serr := s.sleep(ctx, pause); serr != nil {
			return attempt, serr
		}
	}
	return s.attempts, err
}

// retryable reports whether another attempt could succeed.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, domain.ErrDimensionMismatch),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrPermanent):
		return false
	default:
		return true
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
