// Package memory provides in-memory implementations of driven storage ports
// for tests and runs that do not need state across processes.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Ensure ManifestStore implements the interface.
var _ driven.ManifestStore = (*ManifestStore)(nil)

// ManifestStore is an in-memory implementation of driven.ManifestStore.
type ManifestStore struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewManifestStore creates a new in-memory manifest.
func NewManifestStore() *ManifestStore {
	return &ManifestStore{
		counts: make(map[string]int),
	}
}

// Counts returns a copy of every stored chunk count.
func (s *ManifestStore) Counts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.counts), nil
}

// Save stores or updates the chunk count for a document.
func (s *ManifestStore) Save(_ context.Context, documentID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[documentID] = count
	return nil
}

// Delete removes a document's entry.
func (s *ManifestStore) Delete(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, documentID)
	return nil
}

// Close releases resources.
func (s *ManifestStore) Close() error {
	return nil
}
