// Package filesystem provides a corpus backed by a local directory. Document
// ids are slash-separated paths relative to the root, so they stay stable
// across runs and machines.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Verify interface compliance.
var _ driven.Corpus = (*Corpus)(nil)

// DefaultMaxContentSize caps downloaded content (10MB).
const DefaultMaxContentSize = 10 * 1024 * 1024

// sniffSize is how many leading bytes are read when the extension alone does
// not identify a file.
const sniffSize = 512

// Options configures the filesystem corpus.
type Options struct {
	// Recursive descends into sub-directories.
	Recursive bool
	// MaxContentSize caps downloaded content in bytes.
	MaxContentSize int64
}

// Corpus lists and reads files below a root directory.
type Corpus struct {
	root string
	opts Options

	// readHead is replaced in tests.
	readHead func(path string) ([]byte, error)
}

// New creates a filesystem corpus rooted at root.
func New(root string, opts Options) (*Corpus, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve corpus root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", abs)
	}
	if opts.MaxContentSize <= 0 {
		opts.MaxContentSize = DefaultMaxContentSize
	}
	return &Corpus{root: abs, opts: opts, readHead: readHead}, nil
}

// Root returns the absolute root directory.
func (c *Corpus) Root() string {
	return c.root
}

// List walks the root in lexical order. Hidden files and directories are
// skipped.
func (c *Corpus) List(ctx context.Context, filter driven.ContentFilter) iter.Seq2[domain.SourceDocument, error] {
	return func(yield func(domain.SourceDocument, error) bool) {
		stopped := false
		err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if path == c.root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if !c.opts.Recursive {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			doc, ok := c.describe(path, d)
			if !ok {
				return nil
			}
			if filter != nil && !filter(doc.ContentType) {
				return nil
			}
			if !yield(doc, nil) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(domain.SourceDocument{}, &domain.DiscoveryError{Root: c.root, Err: err})
		}
	}
}

// describe builds the listing entry for a file. A file that cannot be
// inspected is still listed when possible: extraction reports it as a
// per-document failure. Only a file that vanished is dropped.
func (c *Corpus) describe(path string, d fs.DirEntry) (domain.SourceDocument, bool) {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		logger.Warn("skipping file outside corpus root", "path", path, "error", err)
		return domain.SourceDocument{}, false
	}
	id := filepath.ToSlash(rel)

	info, err := d.Info()
	if err != nil {
		logger.Warn("skipping file", "document", id, "error", err)
		return domain.SourceDocument{}, false
	}

	head, err := c.readHead(path)
	if err != nil {
		logger.Warn("content sniffing failed, using file name", "document", id, "error", err)
		head = nil
	}

	return domain.SourceDocument{
		ID:          id,
		Name:        d.Name(),
		ContentType: DetectContentType(path, head),
		Size:        info.Size(),
		WebLink:     ResolveWebURL(path),
		ModifiedAt:  info.ModTime().UTC(),
	}, true
}

// readHead returns the leading bytes used for content sniffing.
func readHead(path string) ([]byte, error) {
	if _, ok := knownExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

// Download reads a file, capped at MaxContentSize.
func (c *Corpus) Download(ctx context.Context, doc domain.SourceDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := c.resolve(doc.ID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, doc.ID)
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, c.opts.MaxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", doc.ID, err)
	}
	if int64(len(data)) > c.opts.MaxContentSize {
		return nil, fmt.Errorf("%w: more than %d bytes", domain.ErrContentTooLarge, c.opts.MaxContentSize)
	}
	return data, nil
}

// Export is not supported: local files have no native export formats.
func (c *Corpus) Export(_ context.Context, doc domain.SourceDocument, _ string) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s", domain.ErrNotExportable, doc.ContentType)
}

// Close releases resources.
func (c *Corpus) Close() error {
	return nil
}

// resolve maps a document id back to a path inside the root.
func (c *Corpus) resolve(id string) (string, error) {
	if id == "" || !filepath.IsLocal(filepath.FromSlash(id)) {
		return "", fmt.Errorf("%w: document id %q is outside the corpus", domain.ErrInvalidInput, id)
	}
	return filepath.Join(c.root, filepath.FromSlash(id)), nil
}
