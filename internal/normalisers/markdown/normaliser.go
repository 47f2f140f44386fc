package markdown

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct {
	fetcher driven.ContentFetcher
	md      goldmark.Markdown
}

// New creates a new Markdown normaliser.
func New(fetcher driven.ContentFetcher) *Normaliser {
	return &Normaliser{
		fetcher: fetcher,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		),
	}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Normalise downloads a markdown file and renders it as plain text.
func (n *Normaliser) Normalise(ctx context.Context, doc domain.SourceDocument) (string, error) {
	data, err := n.fetcher.Download(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", doc.ID, err)
	}

	src, err := plaintext.Decode(data)
	if err != nil {
		return "", err
	}

	return n.ToText([]byte(src)), nil
}

// ToText renders markdown source as plain text. Formatting is dropped, block
// elements end with a paragraph break and code blocks keep their lines.
func (n *Normaliser) ToText(src []byte) string {
	root := n.md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch node.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.CodeBlock, *ast.FencedCodeBlock, *ast.ThematicBreak:
				buf.WriteString("\n\n")
			case *ast.TextBlock, *ast.List, *ast.Blockquote, *extast.TableRow, *extast.TableHeader:
				buf.WriteString("\n")
			case *extast.TableCell:
				buf.WriteString("\t")
			}
			return ast.WalkContinue, nil
		}

		switch node := node.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				buf.Write(line.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return buf.String()
}
