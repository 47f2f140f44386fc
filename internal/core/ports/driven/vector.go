package driven

import (
	"context"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

// VectorIndex is the write side of the external vector index.
// Upsert must overwrite by id: writing the same record twice leaves the
// index in the same state as writing it once.
type VectorIndex interface {
	// Name returns the backend name for logging.
	Name() string

	// Dimensions returns the vector size the index was created with.
	Dimensions() int

	// Upsert inserts or overwrites records in one request.
	Upsert(ctx context.Context, records []domain.IndexRecord) error

	// Delete removes records by datapoint id. Missing ids are not an error.
	Delete(ctx context.Context, ids []string) error

	// Close releases resources.
	Close() error
}
