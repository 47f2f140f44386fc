// Package docx extracts the body text of Word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MimeType is the Office Open XML word processing content type.
const MimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// maxBodySize caps the decompressed size of word/document.xml.
const maxBodySize = 64 << 20

var (
	// ErrNotDOCX indicates content that is not a Word archive.
	ErrNotDOCX = errors.New("not a docx archive")

	// ErrMissingBody indicates an archive without word/document.xml.
	ErrMissingBody = errors.New("docx has no word/document.xml")
)

// Normaliser handles DOCX documents.
type Normaliser struct {
	fetcher driven.ContentFetcher
}

// New creates a new DOCX normaliser.
func New(fetcher driven.ContentFetcher) *Normaliser {
	return &Normaliser{fetcher: fetcher}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MimeType}
}

// Normalise downloads a DOCX file and returns its paragraphs as text.
func (n *Normaliser) Normalise(ctx context.Context, doc domain.SourceDocument) (string, error) {
	data, err := n.fetcher.Download(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", doc.ID, err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotDOCX, err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return bodyText(io.LimitReader(rc, maxBodySize))
	}
	return "", ErrMissingBody
}

// bodyText streams document.xml and collects run text. Paragraphs end with a
// blank line, tabs and breaks keep their layout.
func bodyText(r io.Reader) (string, error) {
	var (
		sb     strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
