package normalisers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Extractor = (*Registry)(nil)

// Registry maps content types to the normaliser that handles them.
// A later registration for the same type replaces the earlier one.
type Registry struct {
	byType map[string]driven.Normaliser
}

// NewRegistry creates a registry with the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{byType: make(map[string]driven.Normaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser for every content type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	for _, ct := range n.SupportedMIMETypes() {
		r.byType[baseType(ct)] = n
	}
}

// Supports reports whether a normaliser is registered for the content type.
func (r *Registry) Supports(contentType string) bool {
	_, ok := r.byType[baseType(contentType)]
	return ok
}

// SupportedMIMETypes returns all registered content types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	types := make([]string, 0, len(r.byType))
	for ct := range r.byType {
		types = append(types, ct)
	}
	slices.Sort(types)
	return types
}

// Extract returns the cleaned text of a document.
func (r *Registry) Extract(ctx context.Context, doc domain.SourceDocument) (string, error) {
	n, ok := r.byType[baseType(doc.ContentType)]
	if !ok {
		return "", &domain.ExtractionError{
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Err:          fmt.Errorf("%w: %s", domain.ErrUnsupportedType, doc.ContentType),
		}
	}

	text, err := n.Normalise(ctx, doc)
	if err != nil {
		var extractionErr *domain.ExtractionError
		if errors.As(err, &extractionErr) {
			return "", err
		}
		return "", &domain.ExtractionError{DocumentID: doc.ID, DocumentName: doc.Name, Err: err}
	}
	return Clean(text), nil
}

// baseType strips parameters and case from a content type.
func baseType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
