package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extraction strategy handles a content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNotExportable indicates the corpus cannot export this document.
	ErrNotExportable = errors.New("document is not exportable")

	// ErrContentTooLarge indicates downloaded content exceeded the size cap.
	ErrContentTooLarge = errors.New("content exceeds size limit")

	// ErrLengthMismatch indicates a batch response was not aligned with its request.
	ErrLengthMismatch = errors.New("response length does not match request")

	// ErrDimensionMismatch indicates a vector has the wrong dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrRunCancelled indicates the run was cancelled between stages.
	ErrRunCancelled = errors.New("run cancelled")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermanent marks a provider failure that retrying cannot fix.
	ErrPermanent = errors.New("permanent failure")

	// ErrSyncInProgress indicates a run was requested while another is active.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// ErrorKind classifies a failure recorded in a run summary.
type ErrorKind string

const (
	// KindDiscovery is a fatal listing failure.
	KindDiscovery ErrorKind = "discovery"
	// KindExtraction is a per-document extraction failure.
	KindExtraction ErrorKind = "extraction"
	// KindChunking is a per-document chunking failure.
	KindChunking ErrorKind = "chunking"
	// KindEmbeddingBatch is a per-batch embedding failure.
	KindEmbeddingBatch ErrorKind = "embedding_batch"
	// KindUpsertBatch is a per-batch upsert failure after retries.
	KindUpsertBatch ErrorKind = "upsert_batch"
	// KindReconcile is a failure deleting stale records.
	KindReconcile ErrorKind = "reconcile"
	// KindCancelled is a run stopped by its caller.
	KindCancelled ErrorKind = "cancelled"
)

// DiscoveryError means the corpus listing could not complete.
// It is always fatal to the run.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %q: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ExtractionError means one document could not be turned into text.
type ExtractionError struct {
	DocumentID   string
	DocumentName string
	Err          error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.DocumentID, e.DocumentName, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ChunkingError means one document's text could not be chunked.
type ChunkingError struct {
	DocumentID string
	Err        error
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunk %s: %v", e.DocumentID, e.Err)
}

func (e *ChunkingError) Unwrap() error { return e.Err }

// BatchError records a failed embedding or upsert batch.
type BatchError struct {
	// Stage is KindEmbeddingBatch or KindUpsertBatch.
	Stage ErrorKind
	// Batch is the zero-based batch index within the stage.
	Batch int
	// Size is the number of items in the batch.
	Size int
	// Attempts is how many calls were made for the batch. Zero means the
	// batch was rejected locally and never sent.
	Attempts int
	// Err is the last underlying cause.
	Err error
}

func (e *BatchError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("%s batch %d (%d items, not sent): %v", e.Stage, e.Batch, e.Size, e.Err)
	}
	return fmt.Sprintf("%s batch %d (%d items, %d attempts): %v", e.Stage, e.Batch, e.Size, e.Attempts, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// ReconcileError records a failure deleting stale records for a document.
type ReconcileError struct {
	DocumentID string
	IDs        int
	Err        error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile %s (%d ids): %v", e.DocumentID, e.IDs, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// ThrottledError means a provider rejected a call for exceeding its rate
// limit. RetryAfter is the provider's hint, zero when it sent none.
type ThrottledError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ThrottledError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("throttled (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("throttled: %v", e.Err)
}

func (e *ThrottledError) Unwrap() error { return e.Err }
