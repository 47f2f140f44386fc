package services

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// DefaultDeleteBatchSize is the number of ids removed per delete call.
const DefaultDeleteBatchSize = 100

// ReconcileInput is what one run learned about the corpus.
type ReconcileInput struct {
	// Listed holds the id of every document in the complete listing.
	Listed map[string]bool

	// Produced holds the chunk count of every document that was extracted
	// and chunked this run, zero-chunk documents included.
	Produced map[string]int

	// Upserted holds how many of each document's records were written.
	Upserted map[string]int
}

// ReconcileResult is the outcome of the reconciliation stage.
type ReconcileResult struct {
	// Deleted is the number of stale ids removed from the index.
	Deleted int

	// Failures holds one error per document that could not be reconciled.
	Failures []*domain.ReconcileError
}

// Reconciler removes index records left behind by documents that shrank or
// disappeared, using the chunk counts stored by earlier runs.
type Reconciler struct {
	manifest  driven.ManifestStore
	index     driven.VectorIndex
	limiter   driven.RateLimiter
	batchSize int
}

// NewReconciler creates a reconciler. limiter may be nil.
func NewReconciler(manifest driven.ManifestStore, index driven.VectorIndex, limiter driven.RateLimiter, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = DefaultDeleteBatchSize
	}
	return &Reconciler{manifest: manifest, index: index, limiter: limiter, batchSize: batchSize}
}

// Reconcile updates the manifest and deletes stale ids.
//
// For a document whose chunks were all written, ids at ordinals from the new
// count up to the stored count are deleted and the new count is stored. A
// document with failed chunks stores the larger of the two counts so a later
// run can still clean up. A stored document missing from the listing has all
// its ids deleted and is forgotten. Documents not produced this run are left
// untouched.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	result := &ReconcileResult{}

	previous, err := r.manifest.Counts(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Failures = append(result.Failures, &domain.ReconcileError{Err: fmt.Errorf("read manifest: %w", err)})
		return result, nil
	}

	for _, docID := range slices.Sorted(maps.Keys(in.Produced)) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		count := in.Produced[docID]
		prev, known := previous[docID]

		if in.Upserted[docID] < count {
			if keep := max(prev, count); !known || keep != prev {
				r.save(ctx, result, docID, keep)
			}
			continue
		}

		if count < prev {
			n, err := r.deleteRange(ctx, docID, count, prev)
			result.Deleted += n
			if err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				result.Failures = append(result.Failures, &domain.ReconcileError{DocumentID: docID, IDs: prev - count, Err: err})
				continue
			}
		}
		if !known || count != prev {
			r.save(ctx, result, docID, count)
		}
	}

	for _, docID := range slices.Sorted(maps.Keys(previous)) {
		if in.Listed[docID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		prev := previous[docID]
		n, err := r.deleteRange(ctx, docID, 0, prev)
		result.Deleted += n
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failures = append(result.Failures, &domain.ReconcileError{DocumentID: docID, IDs: prev, Err: err})
			continue
		}
		if err := r.manifest.Delete(ctx, docID); err != nil {
			result.Failures = append(result.Failures, &domain.ReconcileError{DocumentID: docID, Err: fmt.Errorf("forget document: %w", err)})
			continue
		}
		logger.Debug("removed vanished document", "document", docID, "ids", prev)
	}

	logger.Info("reconcile stage finished", "deleted", result.Deleted, "failures", len(result.Failures))
	return result, nil
}

func (r *Reconciler) save(ctx context.Context, result *ReconcileResult, docID string, count int) {
	if err := r.manifest.Save(ctx, docID, count); err != nil {
		result.Failures = append(result.Failures, &domain.ReconcileError{DocumentID: docID, Err: fmt.Errorf("save manifest: %w", err)})
	}
}

// deleteRange removes the ids for ordinals [from, to) of a document and
// returns how many were removed before any failure.
func (r *Reconciler) deleteRange(ctx context.Context, docID string, from, to int) (int, error) {
	ids := make([]string, 0, to-from)
	for ord := from; ord < to; ord++ {
		ids = append(ids, domain.ChunkID(docID, ord))
	}

	deleted := 0
	for start := 0; start < len(ids); start += r.batchSize {
		end := min(start+r.batchSize, len(ids))
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return deleted, err
			}
		}
		if err := r.index.Delete(ctx, ids[start:end]); err != nil {
			noteThrottle(r.limiter, err)
			return deleted, fmt.Errorf("delete ids: %w", err)
		}
		deleted += end - start
	}
	return deleted, nil
}
