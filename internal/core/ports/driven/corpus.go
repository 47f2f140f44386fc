package driven

import (
	"context"
	"iter"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

// ContentFilter decides whether a content type should be listed.
// A nil filter lists everything.
type ContentFilter func(contentType string) bool

// DocumentLister enumerates documents in the corpus.
// Each connector (drive, filesystem) implements this interface.
type DocumentLister interface {
	// Root returns the corpus root reference being listed.
	Root() string

	// List returns a lazy, finite sequence of documents. Ranging over the
	// sequence again re-issues the listing. Pagination is handled inside the
	// sequence; trashed items and folders are never yielded. A non-nil error
	// ends the sequence and means the listing is incomplete.
	List(ctx context.Context, filter ContentFilter) iter.Seq2[domain.SourceDocument, error]
}

// ContentFetcher retrieves document content from the corpus.
type ContentFetcher interface {
	// Download returns the raw bytes of a stored file.
	Download(ctx context.Context, doc domain.SourceDocument) ([]byte, error)

	// Export converts a native document to the given MIME type.
	// Returns domain.ErrNotExportable when the corpus cannot convert it.
	Export(ctx context.Context, doc domain.SourceDocument, mimeType string) ([]byte, error)
}

// Corpus is a connector that both lists and fetches documents.
type Corpus interface {
	DocumentLister
	ContentFetcher

	// Close releases resources.
	Close() error
}

// ChangeWatcher reports that the corpus changed. Notifications carry no
// detail: the next pass lists the corpus again.
type ChangeWatcher interface {
	// Watch starts watching. The channel is closed when ctx is done or the
	// watcher is closed.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close stops watching.
	Close() error
}
