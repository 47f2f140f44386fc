package markdown

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/plaintext"
)

type mdFetcher struct {
	data []byte
	err  error
}

func (f *mdFetcher) Download(context.Context, domain.SourceDocument) ([]byte, error) {
	return f.data, f.err
}

func (f *mdFetcher) Export(context.Context, domain.SourceDocument, string) ([]byte, error) {
	return nil, domain.ErrNotExportable
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New(nil).SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/markdown")
	assert.Contains(t, mimeTypes, "text/x-markdown")
	assert.Len(t, mimeTypes, 2)
}

func TestNormalise_Success(t *testing.T) {
	n := New(&mdFetcher{data: []byte("# Hello World\n\nThis is a **test**.")})

	text, err := n.Normalise(context.Background(), domain.SourceDocument{ID: "doc"})
	require.NoError(t, err)
	assert.Equal(t, "Hello World\n\nThis is a test.", strings.TrimSpace(text))
}

func TestNormalise_Empty(t *testing.T) {
	n := New(&mdFetcher{data: nil})

	text, err := n.Normalise(context.Background(), domain.SourceDocument{ID: "doc"})
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(text))
}

func TestNormalise_Binary(t *testing.T) {
	n := New(&mdFetcher{data: []byte{0, 1, 2, 0}})

	_, err := n.Normalise(context.Background(), domain.SourceDocument{ID: "doc"})
	assert.ErrorIs(t, err, plaintext.ErrBinaryContent)
}

func TestToText(t *testing.T) {
	n := New(nil)

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "links keep their text",
			input:    "See [the guide](https://example.com/guide) for more.",
			contains: []string{"See the guide for more."},
			excludes: []string{"https://example.com/guide", "]("},
		},
		{
			name:     "emphasis and inline code",
			input:    "Use *care* with `rm -rf`.",
			contains: []string{"Use care with rm -rf."},
			excludes: []string{"*", "`"},
		},
		{
			name:     "code block lines kept",
			input:    "Run:\n\n```sh\nmake build\nmake test\n```\n",
			contains: []string{"Run:", "make build\nmake test"},
			excludes: []string{"```"},
		},
		{
			name:     "list items on separate lines",
			input:    "- first\n- second\n",
			contains: []string{"first\nsecond"},
			excludes: []string{"- "},
		},
		{
			name:     "html dropped",
			input:    "<div>hidden</div>\n\nvisible",
			contains: []string{"visible"},
			excludes: []string{"<div>", "hidden"},
		},
		{
			name:     "table cells",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |\n",
			contains: []string{"a\tb", "1\t2"},
			excludes: []string{"|"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.ToText([]byte(tt.input))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, got, not)
			}
		})
	}
}
