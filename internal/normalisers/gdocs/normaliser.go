// Package gdocs extracts text from native Google Workspace documents by
// exporting them through the corpus.
package gdocs

import (
	"context"
	"fmt"
	"strings"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Native Google Workspace content types.
const (
	MimeTypeDocument     = "application/vnd.google-apps.document"
	MimeTypePresentation = "application/vnd.google-apps.presentation"
	MimeTypeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
)

// exportFormats maps each native type to the text format it is exported as.
var exportFormats = map[string]string{
	MimeTypeDocument:     "text/plain",
	MimeTypePresentation: "text/plain",
	MimeTypeSpreadsheet:  "text/csv",
}

// ExportFormat returns the export MIME type for a native document type.
func ExportFormat(contentType string) (string, bool) {
	f, ok := exportFormats[contentType]
	return f, ok
}

// Normaliser handles exportable documents.
type Normaliser struct {
	fetcher driven.ContentFetcher
}

// New creates a new export normaliser.
func New(fetcher driven.ContentFetcher) *Normaliser {
	return &Normaliser{fetcher: fetcher}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MimeTypeDocument, MimeTypePresentation, MimeTypeSpreadsheet}
}

// Normalise exports the document as text.
func (n *Normaliser) Normalise(ctx context.Context, doc domain.SourceDocument) (string, error) {
	format, ok := ExportFormat(doc.ContentType)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNotExportable, doc.ContentType)
	}

	data, err := n.fetcher.Export(ctx, doc, format)
	if err != nil {
		return "", fmt.Errorf("export %s as %s: %w", doc.ID, format, err)
	}

	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
