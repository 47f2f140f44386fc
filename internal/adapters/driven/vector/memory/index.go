// Package memory provides an in-process vector index for development runs
// and tests. Records do not survive the process.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory implementation of driven.VectorIndex.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	records    map[string][]float32
}

// NewIndex creates an empty index. A non-positive dimension accepts vectors
// of any size.
func NewIndex(dimensions int) *Index {
	return &Index{
		dimensions: dimensions,
		records:    make(map[string][]float32),
	}
}

// Name returns the backend name.
func (x *Index) Name() string { return "memory" }

// Dimensions returns the configured vector size.
func (x *Index) Dimensions() int { return x.dimensions }

// Upsert stores copies of the records, overwriting by id. The batch is
// rejected as a whole when any vector has the wrong size.
func (x *Index) Upsert(_ context.Context, records []domain.IndexRecord) error {
	if x.dimensions > 0 {
		for _, r := range records {
			if len(r.FeatureVector) != x.dimensions {
				return fmt.Errorf("%w: %s has %d values, index expects %d",
					domain.ErrDimensionMismatch, r.DatapointID, len(r.FeatureVector), x.dimensions)
			}
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, r := range records {
		x.records[r.DatapointID] = slices.Clone(r.FeatureVector)
	}
	return nil
}

// Delete removes records by id.
func (x *Index) Delete(_ context.Context, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		delete(x.records, id)
	}
	return nil
}

// Get returns a copy of the vector stored under id.
func (x *Index) Get(id string) ([]float32, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	v, ok := x.records[id]
	return slices.Clone(v), ok
}

// IDs returns every stored id in sorted order.
func (x *Index) IDs() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := make([]string, 0, len(x.records))
	for id := range x.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Count returns the number of stored records.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}

// Close releases resources.
func (x *Index) Close() error { return nil }
