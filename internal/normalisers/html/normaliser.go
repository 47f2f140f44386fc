package html

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct {
	fetcher driven.ContentFetcher
}

// New creates a new HTML normaliser.
func New(fetcher driven.ContentFetcher) *Normaliser {
	return &Normaliser{fetcher: fetcher}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Normalise downloads an HTML file and returns its visible text.
func (n *Normaliser) Normalise(ctx context.Context, doc domain.SourceDocument) (string, error) {
	data, err := n.fetcher.Download(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", doc.ID, err)
	}

	src, err := plaintext.Decode(data)
	if err != nil {
		return "", err
	}
	return stripHTML(src), nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	invisibleTags = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg|template)[^>]*>.*?</(script|style|noscript|head|svg|template)>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	paragraphEnds = regexp.MustCompile(`(?i)</(p|h[1-6]|blockquote|pre|table|section|article|ul|ol)>`)
	lineEnds      = regexp.MustCompile(`(?i)</(div|li|tr|dt|dd)>|<br\s*/?>|<hr\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
)

// stripHTML removes markup and returns readable text with paragraph breaks.
func stripHTML(content string) string {
	content = invisibleTags.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = paragraphEnds.ReplaceAllString(content, "\n\n")
	content = lineEnds.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, " ")

	content = html.UnescapeString(content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
