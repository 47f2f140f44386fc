package domain

import (
	"errors"
	"time"
)

// RunState is a state of the orchestrator's state machine.
type RunState string

const (
	StateStarted               RunState = "Started"
	StateListing               RunState = "Listing"
	StatePerDocumentProcessing RunState = "PerDocumentProcessing"
	StateEmbedding             RunState = "Embedding"
	StateUpserting             RunState = "Upserting"
	StateReconciling           RunState = "Reconciling"
	StateCompleted             RunState = "Completed"
	StateFailed                RunState = "Failed"
)

// RunStatus is the externally reported outcome of a run.
type RunStatus string

const (
	StatusCompleted           RunStatus = "completed"
	StatusCompletedWithErrors RunStatus = "completed_with_errors"
	StatusFailed              RunStatus = "failed"
)

// Skip reasons recorded in a run summary.
const (
	ReasonUnsupportedType  = "unsupported type"
	ReasonExtractionFailed = "extraction failed"
	ReasonChunkingFailed   = "chunking failed"
)

// SkippedDocument is a document that contributed no chunks.
type SkippedDocument struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// RunError is one non-fatal (or the fatal) failure recorded for a run.
type RunError struct {
	Kind         ErrorKind `json:"kind"`
	DocumentID   string    `json:"documentId,omitempty"`
	DocumentName string    `json:"documentName,omitempty"`
	Batch        *int      `json:"batch,omitempty"`
	Attempts     int       `json:"attempts,omitempty"`
	Message      string    `json:"message"`
}

// NewRunError builds a summary entry from a typed pipeline error.
func NewRunError(err error) RunError {
	var (
		discovery  *DiscoveryError
		extraction *ExtractionError
		chunking   *ChunkingError
		batch      *BatchError
		reconcile  *ReconcileError
	)
	switch {
	case errors.As(err, &discovery):
		return RunError{Kind: KindDiscovery, Message: err.Error()}
	case errors.As(err, &extraction):
		return RunError{
			Kind:         KindExtraction,
			DocumentID:   extraction.DocumentID,
			DocumentName: extraction.DocumentName,
			Message:      extraction.Err.Error(),
		}
	case errors.As(err, &chunking):
		return RunError{Kind: KindChunking, DocumentID: chunking.DocumentID, Message: chunking.Err.Error()}
	case errors.As(err, &batch):
		idx := batch.Batch
		return RunError{Kind: batch.Stage, Batch: &idx, Attempts: batch.Attempts, Message: batch.Err.Error()}
	case errors.As(err, &reconcile):
		return RunError{Kind: KindReconcile, DocumentID: reconcile.DocumentID, Message: reconcile.Err.Error()}
	case errors.Is(err, ErrRunCancelled):
		return RunError{Kind: KindCancelled, Message: err.Error()}
	default:
		return RunError{Kind: KindDiscovery, Message: err.Error()}
	}
}

// RunSummary is the structured result of one synchronisation run.
type RunSummary struct {
	RunID               string            `json:"runId"`
	Status              RunStatus         `json:"status"`
	State               RunState          `json:"state"`
	StartedAt           time.Time         `json:"startedAt"`
	FinishedAt          time.Time         `json:"finishedAt"`
	DocumentsDiscovered int               `json:"documentsDiscovered"`
	DocumentsProcessed  int               `json:"documentsProcessed"`
	DocumentsSkipped    []SkippedDocument `json:"documentsSkipped"`
	ChunksGenerated     int               `json:"chunksGenerated"`
	ChunksEmbedded      int               `json:"chunksEmbedded"`
	RecordsUpserted     int               `json:"recordsUpserted"`
	RecordsDeleted      int               `json:"recordsDeleted"`
	Errors              []RunError        `json:"errors"`
}

// AddError appends a failure to the summary.
func (s *RunSummary) AddError(err error) {
	s.Errors = append(s.Errors, NewRunError(err))
}

// Skip records a document that contributed no chunks.
func (s *RunSummary) Skip(doc SourceDocument, reason string) {
	s.DocumentsSkipped = append(s.DocumentsSkipped, SkippedDocument{ID: doc.ID, Name: doc.Name, Reason: reason})
}

// Finish sets the terminal state and derives the reported status.
func (s *RunSummary) Finish(state RunState, now time.Time) {
	s.State = state
	s.FinishedAt = now
	switch {
	case state == StateFailed:
		s.Status = StatusFailed
	case len(s.Errors) > 0:
		s.Status = StatusCompletedWithErrors
	default:
		s.Status = StatusCompleted
	}
}

// Failed reports whether the run hit a fatal error.
func (s *RunSummary) Failed() bool {
	return s.Status == StatusFailed
}
