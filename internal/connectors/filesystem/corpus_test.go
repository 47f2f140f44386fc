package filesystem

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func listAll(t *testing.T, c *Corpus, filter driven.ContentFilter) []domain.SourceDocument {
	t.Helper()
	var docs []domain.SourceDocument
	for doc, err := range c.List(context.Background(), filter) {
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	return docs
}

func docIDs(docs []domain.SourceDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func newCorpus(t *testing.T) (string, *Corpus) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "ABCDEFGHIJ")
	writeFile(t, dir, "a.md", "# Title")
	writeFile(t, dir, "empty.txt", "")
	writeFile(t, dir, "image.png", "\x89PNG\r\n\x1a\n")
	writeFile(t, dir, ".hidden.txt", "secret")
	writeFile(t, dir, "sub/c.txt", "nested")
	writeFile(t, dir, ".git/config", "x")

	c, err := New(dir, Options{})
	require.NoError(t, err)
	return dir, c
}

func TestNew_Errors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "f.txt", "x")
	_, err = New(filepath.Join(dir, "f.txt"), Options{})
	assert.Error(t, err)
}

func TestList_TopLevel(t *testing.T) {
	dir, c := newCorpus(t)

	docs := listAll(t, c, nil)
	assert.Equal(t, []string{"a.md", "b.txt", "empty.txt", "image.png"}, docIDs(docs))

	byID := map[string]domain.SourceDocument{}
	for _, d := range docs {
		byID[d.ID] = d
	}
	assert.Equal(t, "text/markdown", byID["a.md"].ContentType)
	assert.Equal(t, "text/plain", byID["b.txt"].ContentType)
	assert.Equal(t, "image/png", byID["image.png"].ContentType)
	assert.Equal(t, int64(10), byID["b.txt"].Size)
	assert.Equal(t, "b.txt", byID["b.txt"].Name)
	assert.Contains(t, byID["b.txt"].WebLink, "file://")

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, c.Root())
}

func TestList_Recursive(t *testing.T) {
	dir, _ := newCorpus(t)
	c, err := New(dir, Options{Recursive: true})
	require.NoError(t, err)

	docs := listAll(t, c, nil)
	assert.Contains(t, docIDs(docs), "sub/c.txt")
	assert.NotContains(t, docIDs(docs), ".git/config")
}

func TestList_Filter(t *testing.T) {
	_, c := newCorpus(t)

	docs := listAll(t, c, func(ct string) bool { return ct == "text/plain" })
	assert.Equal(t, []string{"b.txt", "empty.txt"}, docIDs(docs))
}

func TestList_UnreadableFileStillListed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.txt", "beta")
	writeFile(t, dir, "Makefile", "all:\n\tgo build ./...\n")

	c, err := New(dir, Options{})
	require.NoError(t, err)
	c.readHead = func(path string) ([]byte, error) {
		if filepath.Base(path) == "Makefile" {
			return nil, fs.ErrPermission
		}
		return readHead(path)
	}

	docs := listAll(t, c, nil)
	assert.Equal(t, []string{"Makefile", "a.txt", "b.txt"}, docIDs(docs))
	assert.Equal(t, "text/plain", docs[0].ContentType)
}

func TestList_PermissionDeniedFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "Makefile", "all:")
	require.NoError(t, os.Chmod(filepath.Join(dir, "Makefile"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(dir, "Makefile"), 0o644) })

	c, err := New(dir, Options{})
	require.NoError(t, err)

	docs := listAll(t, c, nil)
	assert.Equal(t, []string{"Makefile", "a.txt"}, docIDs(docs))

	// The failure surfaces per document, at download time.
	_, err = c.Download(context.Background(), docs[0])
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestList_Restartable(t *testing.T) {
	_, c := newCorpus(t)
	seq := c.List(context.Background(), nil)

	var first, second []string
	for d, err := range seq {
		require.NoError(t, err)
		first = append(first, d.ID)
	}
	for d, err := range seq {
		require.NoError(t, err)
		second = append(second, d.ID)
	}
	assert.Equal(t, first, second)
}

func TestList_Cancelled(t *testing.T) {
	_, c := newCorpus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range c.List(ctx, nil) {
		gotErr = err
	}
	var discovery *domain.DiscoveryError
	require.ErrorAs(t, gotErr, &discovery)
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestList_EarlyStop(t *testing.T) {
	_, c := newCorpus(t)

	count := 0
	for _, err := range c.List(context.Background(), nil) {
		require.NoError(t, err)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestDownload(t *testing.T) {
	_, c := newCorpus(t)
	ctx := context.Background()

	data, err := c.Download(ctx, domain.SourceDocument{ID: "b.txt"})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ", string(data))

	data, err = c.Download(ctx, domain.SourceDocument{ID: "empty.txt"})
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = c.Download(ctx, domain.SourceDocument{ID: "nope.txt"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.Download(ctx, domain.SourceDocument{ID: "../etc/passwd"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDownload_SizeCap(t *testing.T) {
	dir, _ := newCorpus(t)
	c, err := New(dir, Options{MaxContentSize: 4})
	require.NoError(t, err)

	_, err = c.Download(context.Background(), domain.SourceDocument{ID: "b.txt"})
	assert.ErrorIs(t, err, domain.ErrContentTooLarge)
}

func TestExport_NotSupported(t *testing.T) {
	_, c := newCorpus(t)

	_, err := c.Export(context.Background(), domain.SourceDocument{ID: "b.txt", ContentType: "text/plain"}, "text/plain")
	assert.ErrorIs(t, err, domain.ErrNotExportable)
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		path string
		head []byte
		want string
	}{
		{"notes.MD", nil, "text/markdown"},
		{"report.pdf", nil, "application/pdf"},
		{"main.go", []byte("package main\n"), "text/x-go"},
		{"blob", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, "image/png"},
		{"README", nil, "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(tt.path, tt.head))
		})
	}
}
