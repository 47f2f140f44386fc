package plaintext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-enry/go-enry/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	// ErrBinaryContent indicates a text-typed file holds binary data.
	ErrBinaryContent = errors.New("binary content")

	// ErrInvalidEncoding indicates content that is neither UTF-8 nor
	// BOM-marked UTF-16.
	ErrInvalidEncoding = errors.New("content is not valid UTF-8")
)

// Normaliser handles plain text documents.
type Normaliser struct {
	fetcher driven.ContentFetcher
}

// New creates a new plain text normaliser.
func New(fetcher driven.ContentFetcher) *Normaliser {
	return &Normaliser{fetcher: fetcher}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"text/x-go",
		"text/x-python",
		"text/x-java",
		"text/x-shellscript",
		"text/x-sql",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/css",
		"application/json",
		"application/xml",
		"text/xml",
	}
}

// Normalise downloads the file and decodes it as text.
func (n *Normaliser) Normalise(ctx context.Context, doc domain.SourceDocument) (string, error) {
	data, err := n.fetcher.Download(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", doc.ID, err)
	}
	return Decode(data)
}

// Decode converts raw file bytes to a string. UTF-16 input must carry a byte
// order mark; anything else must be valid UTF-8.
func Decode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if !hasUTF16BOM(data) {
		if enry.IsBinary(data) {
			return "", ErrBinaryContent
		}
		if !utf8.Valid(data) {
			return "", ErrInvalidEncoding
		}
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return string(decoded), nil
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFE, 0xFF}) || bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}
