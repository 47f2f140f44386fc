package driven

import "context"

// ManifestStore persists how many chunks each document had after the last
// successful write, so later runs can delete ids beyond a shrunken count.
type ManifestStore interface {
	// Counts returns the stored chunk count for every known document.
	Counts(ctx context.Context) (map[string]int, error)

	// Save sets the chunk count for a document.
	Save(ctx context.Context, documentID string, count int) error

	// Delete forgets a document.
	Delete(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
