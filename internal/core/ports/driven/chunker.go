package driven

import "github.com/seconds-0/slack-support-bot/internal/core/domain"

// Chunker splits normalised text into overlapping windows.
// For fixed text and parameters the output is identical on every call.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk returns the ordered chunks for one document.
	// Empty text yields zero chunks and no error.
	Chunk(documentID, text string) ([]domain.TextChunk, error)
}
