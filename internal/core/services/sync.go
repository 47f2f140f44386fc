package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/sync/errgroup"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driving"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncService = (*SyncOrchestrator)(nil)

// SyncDeps are the client handles a run uses. Each is built once by the
// caller and shared by every run.
type SyncDeps struct {
	Lister    driven.DocumentLister
	Extractor driven.Extractor
	Chunker   driven.Chunker
	Embedder  driven.EmbeddingService
	Index     driven.VectorIndex

	// Manifest enables reconciliation when non-nil and SyncConfig.Reconcile
	// is set.
	Manifest driven.ManifestStore

	// EmbedLimiter and IndexLimiter pace provider calls. Either may be nil.
	EmbedLimiter driven.RateLimiter
	IndexLimiter driven.RateLimiter
}

// SyncConfig holds the batching and concurrency limits of a run.
type SyncConfig struct {
	ExtractWorkers    int
	EmbedBatchSize    int
	EmbedBatchBytes   int
	EmbedConcurrency  int
	UpsertBatchSize   int
	UpsertBatchBytes  int
	UpsertAttempts    int
	UpsertConcurrency int
	DeleteBatchSize   int
	Backoff           gax.Backoff
	Reconcile         bool

	// FilterUnsupported asks the lister to drop documents no extraction
	// strategy handles, so they are never discovered or reported.
	FilterUnsupported bool
}

// DefaultSyncConfig returns the default limits.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		ExtractWorkers:    4,
		EmbedBatchSize:    5,
		EmbedBatchBytes:   30000,
		EmbedConcurrency:  1,
		UpsertBatchSize:   100,
		UpsertBatchBytes:  4 << 20,
		UpsertAttempts:    DefaultUpsertAttempts,
		UpsertConcurrency: 1,
		DeleteBatchSize:   100,
		Backoff:           DefaultBackoff(),
	}
}

// SyncOrchestrator runs synchronisation passes of the corpus into the index.
type SyncOrchestrator struct {
	deps       SyncDeps
	cfg        SyncConfig
	embed      *EmbedStage
	upsert     *UpsertStage
	reconciler *Reconciler

	now   func() time.Time
	newID func() string

	running atomic.Bool

	// Status tracking
	mu     sync.RWMutex
	active *driving.SyncStatus
	last   *domain.RunSummary
}

// SyncOption configures a SyncOrchestrator.
type SyncOption func(*SyncOrchestrator)

// WithClock replaces the time source used for run timestamps.
func WithClock(now func() time.Time) SyncOption {
	return func(o *SyncOrchestrator) { o.now = now }
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(newID func() string) SyncOption {
	return func(o *SyncOrchestrator) { o.newID = newID }
}

// WithUpsertOptions passes extra options to the upsert stage.
func WithUpsertOptions(opts ...UpsertOption) SyncOption {
	return func(o *SyncOrchestrator) {
		o.upsert = NewUpsertStage(o.deps.Index, o.deps.IndexLimiter, o.cfg.UpsertBatchSize, o.cfg.UpsertBatchBytes,
			append(o.upsertOptions(), opts...)...)
	}
}

// NewSyncOrchestrator creates a sync orchestrator.
func NewSyncOrchestrator(deps SyncDeps, cfg SyncConfig, opts ...SyncOption) (*SyncOrchestrator, error) {
	switch {
	case deps.Lister == nil:
		return nil, fmt.Errorf("%w: lister is required", domain.ErrInvalidInput)
	case deps.Extractor == nil:
		return nil, fmt.Errorf("%w: extractor is required", domain.ErrInvalidInput)
	case deps.Chunker == nil:
		return nil, fmt.Errorf("%w: chunker is required", domain.ErrInvalidInput)
	case deps.Embedder == nil:
		return nil, fmt.Errorf("%w: embedder is required", domain.ErrInvalidInput)
	case deps.Index == nil:
		return nil, fmt.Errorf("%w: index is required", domain.ErrInvalidInput)
	}
	if cfg.ExtractWorkers < 1 {
		cfg.ExtractWorkers = 1
	}
	if cfg.DeleteBatchSize < 1 {
		cfg.DeleteBatchSize = cfg.UpsertBatchSize
	}

	o := &SyncOrchestrator{
		deps:  deps,
		cfg:   cfg,
		embed: NewEmbedStage(deps.Embedder, deps.EmbedLimiter, cfg.EmbedBatchSize, cfg.EmbedBatchBytes, cfg.EmbedConcurrency),
		now:   time.Now,
		newID: uuid.NewString,
	}
	o.upsert = NewUpsertStage(deps.Index, deps.IndexLimiter, cfg.UpsertBatchSize, cfg.UpsertBatchBytes, o.upsertOptions()...)
	if cfg.Reconcile && deps.Manifest != nil {
		o.reconciler = NewReconciler(deps.Manifest, deps.Index, deps.IndexLimiter, cfg.DeleteBatchSize)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *SyncOrchestrator) upsertOptions() []UpsertOption {
	opts := []UpsertOption{WithAttempts(o.cfg.UpsertAttempts), WithUpsertConcurrency(o.cfg.UpsertConcurrency)}
	if o.cfg.Backoff.Initial > 0 {
		opts = append(opts, WithBackoff(o.cfg.Backoff))
	}
	return opts
}

// Status reports the pass in progress, if any, and the last finished one.
func (o *SyncOrchestrator) Status() driving.SyncStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var status driving.SyncStatus
	if o.active != nil {
		status = *o.active
	}
	status.Last = o.last
	return status
}

func (o *SyncOrchestrator) setState(summary *domain.RunSummary, state domain.RunState) {
	summary.State = state
	o.mu.Lock()
	if o.active != nil {
		o.active.State = state
	}
	o.mu.Unlock()
	logger.Info("sync state", "run", summary.RunID, "state", state)
}

// docOutcome is the result of extracting and chunking one document.
type docOutcome struct {
	done    bool
	chunks  []domain.TextChunk
	reason  string
	err     error
	skipped bool
}

// Run executes one full pass: list, extract and chunk, embed, upsert and,
// when enabled, reconcile.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *SyncOrchestrator) Run(ctx context.Context) (*domain.RunSummary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer o.running.Store(false)

	summary := &domain.RunSummary{
		RunID:            o.newID(),
		State:            domain.StateStarted,
		StartedAt:        o.now(),
		DocumentsSkipped: []domain.SkippedDocument{},
		Errors:           []domain.RunError{},
	}
	o.mu.Lock()
	o.active = &driving.SyncStatus{Running: true, RunID: summary.RunID, State: summary.State, StartedAt: summary.StartedAt}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.active = nil
		o.last = summary
		o.mu.Unlock()
	}()

	logger.Section("Sync " + summary.RunID)

	// 1. Listing
	o.setState(summary, domain.StateListing)
	docs, err := o.list(ctx)
	summary.DocumentsDiscovered = len(docs)
	if err != nil {
		if ctx.Err() != nil {
			return o.cancel(ctx, summary)
		}
		summary.AddError(err)
		summary.Finish(domain.StateFailed, o.now())
		logger.Error("sync failed", "run", summary.RunID, "error", err)
		return summary, err
	}
	logger.Info("documents discovered", "run", summary.RunID, "count", len(docs))

	// 2. Extract and chunk every document
	o.setState(summary, domain.StatePerDocumentProcessing)
	outcomes := o.processDocuments(ctx, docs)

	var chunks []domain.TextChunk
	produced := make(map[string]int)
	for i, out := range outcomes {
		if !out.done {
			continue
		}
		doc := docs[i]
		if out.skipped {
			summary.Skip(doc, out.reason)
			if out.err != nil {
				summary.AddError(out.err)
				logger.Warn("document skipped", "document", doc.ID, "name", doc.Name, "reason", out.reason, "error", out.err)
			} else {
				logger.Debug("document skipped", "document", doc.ID, "name", doc.Name, "reason", out.reason)
			}
			continue
		}
		summary.DocumentsProcessed++
		produced[doc.ID] = len(out.chunks)
		chunks = append(chunks, out.chunks...)
	}
	summary.ChunksGenerated = len(chunks)
	if ctx.Err() != nil {
		return o.cancel(ctx, summary)
	}

	// 3. Embedding
	o.setState(summary, domain.StateEmbedding)
	embedded, err := o.embed.Embed(ctx, chunks)
	summary.ChunksEmbedded = len(embedded.Vectors)
	for _, f := range embedded.Failures {
		summary.AddError(f)
	}
	if err != nil {
		return o.cancel(ctx, summary)
	}

	// 4. Upserting
	o.setState(summary, domain.StateUpserting)
	written, err := o.upsert.Upsert(ctx, embedded.Vectors)
	summary.RecordsUpserted = written.Upserted
	for _, f := range written.Failures {
		summary.AddError(f)
	}
	if err != nil {
		return o.cancel(ctx, summary)
	}

	// 5. Reconciling
	if o.reconciler != nil {
		o.setState(summary, domain.StateReconciling)
		listed := make(map[string]bool, len(docs))
		for _, d := range docs {
			listed[d.ID] = true
		}
		reconciled, err := o.reconciler.Reconcile(ctx, ReconcileInput{
			Listed:   listed,
			Produced: produced,
			Upserted: written.UpsertedByDoc,
		})
		summary.RecordsDeleted = reconciled.Deleted
		for _, f := range reconciled.Failures {
			summary.AddError(f)
		}
		if err != nil {
			return o.cancel(ctx, summary)
		}
	}

	summary.Finish(domain.StateCompleted, o.now())
	logger.Info("sync complete",
		"run", summary.RunID,
		"status", summary.Status,
		"discovered", summary.DocumentsDiscovered,
		"processed", summary.DocumentsProcessed,
		"skipped", len(summary.DocumentsSkipped),
		"chunks", summary.ChunksGenerated,
		"embedded", summary.ChunksEmbedded,
		"upserted", summary.RecordsUpserted,
		"deleted", summary.RecordsDeleted,
		"errors", len(summary.Errors))
	return summary, nil
}

// list collects the complete listing. Any error means the listing is
// incomplete and is returned as a *domain.DiscoveryError.
func (o *SyncOrchestrator) list(ctx context.Context) ([]domain.SourceDocument, error) {
	var filter driven.ContentFilter
	if o.cfg.FilterUnsupported {
		filter = o.deps.Extractor.Supports
	}

	var docs []domain.SourceDocument
	for doc, err := range o.deps.Lister.List(ctx, filter) {
		if err != nil {
			var de *domain.DiscoveryError
			if !errors.As(err, &de) {
				err = &domain.DiscoveryError{Root: o.deps.Lister.Root(), Err: err}
			}
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// processDocuments extracts and chunks documents with a bounded worker pool.
// Outcomes are indexed like docs; documents not started before ctx ended are
// left undone.
func (o *SyncOrchestrator) processDocuments(ctx context.Context, docs []domain.SourceDocument) []docOutcome {
	outcomes := make([]docOutcome, len(docs))

	var g errgroup.Group
	g.SetLimit(o.cfg.ExtractWorkers)
	for i, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out := o.processDocument(ctx, doc)
			if ctx.Err() != nil && out.err != nil && errors.Is(out.err, ctx.Err()) {
				return nil
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *SyncOrchestrator) processDocument(ctx context.Context, doc domain.SourceDocument) docOutcome {
	if ctx.Err() != nil {
		return docOutcome{}
	}
	if !o.deps.Extractor.Supports(doc.ContentType) {
		return docOutcome{done: true, skipped: true, reason: domain.ReasonUnsupportedType}
	}

	text, err := o.deps.Extractor.Extract(ctx, doc)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			return docOutcome{done: true, skipped: true, reason: domain.ReasonUnsupportedType}
		}
		var ee *domain.ExtractionError
		if !errors.As(err, &ee) {
			err = &domain.ExtractionError{DocumentID: doc.ID, DocumentName: doc.Name, Err: err}
		}
		return docOutcome{done: true, skipped: true, reason: domain.ReasonExtractionFailed, err: err}
	}

	chunks, err := o.deps.Chunker.Chunk(doc.ID, text)
	if err != nil {
		var ce *domain.ChunkingError
		if !errors.As(err, &ce) {
			err = &domain.ChunkingError{DocumentID: doc.ID, Err: err}
		}
		return docOutcome{done: true, skipped: true, reason: domain.ReasonChunkingFailed, err: err}
	}
	logger.Debug("document chunked", "document", doc.ID, "name", doc.Name, "chars", len(text), "chunks", len(chunks))
	return docOutcome{done: true, chunks: chunks}
}

// cancel ends a run stopped by its caller. Counts gathered so far are kept.
func (o *SyncOrchestrator) cancel(ctx context.Context, summary *domain.RunSummary) (*domain.RunSummary, error) {
	err := fmt.Errorf("%w: %w", domain.ErrRunCancelled, context.Cause(ctx))
	logger.Warn("sync cancelled", "run", summary.RunID, "state", summary.State, "error", err)
	summary.AddError(err)
	summary.Finish(domain.StateFailed, o.now())
	return summary, err
}
