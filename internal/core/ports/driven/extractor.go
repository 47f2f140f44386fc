package driven

import (
	"context"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

// Normaliser is one content extraction strategy.
// Each normaliser handles specific content types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the content types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise fetches and converts one document to UTF-8 text.
	// An empty but valid document returns "" and no error.
	Normalise(ctx context.Context, doc domain.SourceDocument) (string, error)
}

// Extractor dispatches documents to the normaliser for their content type.
type Extractor interface {
	// Supports reports whether a normaliser is registered for the content type.
	Supports(contentType string) bool

	// Extract returns the normalised text of a document.
	// Failures are returned as *domain.ExtractionError; unsupported content
	// types wrap domain.ErrUnsupportedType.
	Extract(ctx context.Context, doc domain.SourceDocument) (string, error)
}
