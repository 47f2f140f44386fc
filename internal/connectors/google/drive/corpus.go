// Package drive provides the Google Drive corpus: a paginated lister over a
// folder and a content fetcher that exports native documents and downloads
// stored files.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/seconds-0/slack-support-bot/internal/connectors/google"
	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Verify interface compliance.
var _ driven.Corpus = (*Corpus)(nil)

const listFields = googleapi.Field("nextPageToken, files(id, name, mimeType, size, trashed, webViewLink, modifiedTime)")

// listRetryDelay is the pause before re-requesting a listing page that failed
// transiently without a Retry-After hint.
const listRetryDelay = time.Second

// Corpus lists and fetches files below one Drive folder.
type Corpus struct {
	svc        *drive.Service
	cfg        Config
	limiter    driven.RateLimiter
	retryDelay time.Duration
}

// New creates a Drive corpus. limiter may be nil.
func New(svc *drive.Service, cfg Config, limiter driven.RateLimiter) (*Corpus, error) {
	if svc == nil {
		return nil, errors.New("drive: service is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Corpus{svc: svc, cfg: cfg, limiter: limiter, retryDelay: listRetryDelay}, nil
}

// Root returns the folder id being listed.
func (c *Corpus) Root() string {
	return c.cfg.FolderID
}

// List walks the root folder page by page. Folders are descended into when
// Recursive is set and are never yielded themselves.
func (c *Corpus) List(ctx context.Context, filter driven.ContentFilter) iter.Seq2[domain.SourceDocument, error] {
	return func(yield func(domain.SourceDocument, error) bool) {
		fail := func(err error) {
			yield(domain.SourceDocument{}, &domain.DiscoveryError{Root: c.cfg.FolderID, Err: err})
		}

		folders := []string{c.cfg.FolderID}
		visited := map[string]bool{c.cfg.FolderID: true}

		for len(folders) > 0 {
			folder := folders[0]
			folders = folders[1:]

			pageToken := ""
			for {
				resp, err := c.listPage(ctx, folder, pageToken)
				if err != nil {
					fail(err)
					return
				}

				for _, f := range resp.Files {
					if f == nil || f.Id == "" {
						fail(fmt.Errorf("malformed listing response for folder %s: file without id", folder))
						return
					}
					if f.Trashed || f.MimeType == MimeTypeShortcut {
						continue
					}
					if f.MimeType == MimeTypeFolder {
						if c.cfg.Recursive && !visited[f.Id] {
							visited[f.Id] = true
							folders = append(folders, f.Id)
						}
						continue
					}
					if filter != nil && !filter(f.MimeType) {
						continue
					}
					if !yield(toDocument(f), nil) {
						return
					}
				}

				if resp.NextPageToken == "" {
					break
				}
				pageToken = resp.NextPageToken
			}
		}
	}
}

// listPage fetches one listing page. A rate-limited or 5xx response is
// retried once before the error is returned.
func (c *Corpus) listPage(ctx context.Context, folder, pageToken string) (*drive.FileList, error) {
	resp, err := c.requestPage(ctx, folder, pageToken)
	if err == nil || !google.IsRetryable(err) {
		return resp, err
	}

	delay := google.RetryAfter(err)
	if delay <= 0 {
		delay = c.retryDelay
	}
	logger.Warn("drive listing failed, retrying", "folder", folder, "retry_in", delay, "error", err)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return c.requestPage(ctx, folder, pageToken)
}

func (c *Corpus) requestPage(ctx context.Context, folder, pageToken string) (*drive.FileList, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	call := c.svc.Files.List().
		Q(folderQuery(folder)).
		Fields(listFields).
		PageSize(c.cfg.PageSize).
		OrderBy("name").
		Context(ctx)
	if c.cfg.SharedDrives {
		call = call.SupportsAllDrives(true).IncludeItemsFromAllDrives(true)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		c.noteRateLimit(err)
		return nil, google.WrapError(err)
	}
	logger.Debug("drive page listed", "folder", folder, "files", len(resp.Files), "more", resp.NextPageToken != "")
	return resp, nil
}

// Download returns the stored bytes of a file, capped at MaxContentSize.
func (c *Corpus) Download(ctx context.Context, doc domain.SourceDocument) ([]byte, error) {
	if IsNative(doc.ContentType) {
		return nil, fmt.Errorf("%s has no stored content; export it instead", doc.ContentType)
	}
	if doc.Size > c.cfg.MaxContentSize {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrContentTooLarge, doc.Size)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	call := c.svc.Files.Get(doc.ID).Context(ctx)
	if c.cfg.SharedDrives {
		call = call.SupportsAllDrives(true)
	}
	resp, err := call.Download()
	if err != nil {
		c.noteRateLimit(err)
		return nil, fmt.Errorf("download file: %w", google.WrapError(err))
	}
	defer resp.Body.Close()

	return readLimited(resp.Body, c.cfg.MaxContentSize)
}

// Export converts a native Google document to mimeType, capped at
// MaxContentSize.
func (c *Corpus) Export(ctx context.Context, doc domain.SourceDocument, mimeType string) ([]byte, error) {
	if !IsNative(doc.ContentType) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotExportable, doc.ContentType)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.svc.Files.Export(doc.ID, mimeType).Context(ctx).Download()
	if err != nil {
		c.noteRateLimit(err)
		return nil, fmt.Errorf("export file: %w", google.WrapError(err))
	}
	defer resp.Body.Close()

	return readLimited(resp.Body, c.cfg.MaxContentSize)
}

// Close releases resources.
func (c *Corpus) Close() error {
	return nil
}

func (c *Corpus) wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}

func (c *Corpus) noteRateLimit(err error) {
	if !google.IsRateLimited(err) {
		return
	}
	if b, ok := c.limiter.(driven.Throttler); ok {
		b.Backoff(google.RetryAfter(err))
	}
}

// readLimited reads at most limit bytes and fails if more are available.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", domain.ErrContentTooLarge, limit)
	}
	return data, nil
}

func folderQuery(folderID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(folderID)
	return fmt.Sprintf("'%s' in parents and trashed = false", escaped)
}

func toDocument(f *drive.File) domain.SourceDocument {
	doc := domain.SourceDocument{
		ID:          f.Id,
		Name:        f.Name,
		ContentType: f.MimeType,
		Size:        f.Size,
		WebLink:     ResolveWebURL(f.Id, f.WebViewLink),
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		doc.ModifiedAt = t
	}
	return doc
}
