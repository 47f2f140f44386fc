// Package container builds every client handle once per process and wires
// the sync orchestrator from configuration.
package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/googleapis/gax-go/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/aiplatform/v1"

	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/ai"
	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/config/file"
	memorystore "github.com/seconds-0/slack-support-bot/internal/adapters/driven/storage/memory"
	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/storage/sqlite"
	memoryindex "github.com/seconds-0/slack-support-bot/internal/adapters/driven/vector/memory"
	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/vector/milvus"
	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/vector/pgvector"
	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/vector/qdrant"
	vertexindex "github.com/seconds-0/slack-support-bot/internal/adapters/driven/vector/vertex"
	"github.com/seconds-0/slack-support-bot/internal/connectors/filesystem"
	"github.com/seconds-0/slack-support-bot/internal/connectors/google"
	"github.com/seconds-0/slack-support-bot/internal/connectors/google/drive"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/core/services"
	"github.com/seconds-0/slack-support-bot/internal/logger"
	"github.com/seconds-0/slack-support-bot/internal/normalisers"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/pdf"
	"github.com/seconds-0/slack-support-bot/internal/postprocessors"
	"github.com/seconds-0/slack-support-bot/internal/postprocessors/chunker"
	"github.com/seconds-0/slack-support-bot/internal/ratelimit"
)

// Container holds the wired application.
type Container struct {
	Config    *file.Config
	Corpus    driven.Corpus
	Embedder  driven.EmbeddingService
	Index     driven.VectorIndex
	Manifest  driven.ManifestStore
	Sync      *services.SyncOrchestrator
	Scheduler *services.Scheduler
	Watcher   *services.WatchTrigger

	// google clients are created on first use and shared.
	tokenSources map[string]oauth2.TokenSource
	aiClient     *aiplatform.Service

	closers []func() error
}

// New builds the container. On error every handle built so far is closed.
func New(ctx context.Context, cfg *file.Config) (c *Container, err error) {
	c = &Container{Config: cfg, tokenSources: make(map[string]oauth2.TokenSource)}
	defer func() {
		if err != nil {
			_ = c.Close()
			c = nil
		}
	}()

	corpusLimiter := ratelimit.ForService(ratelimit.ServiceCorpus, ratelimit.Config{
		RequestsPerSecond: cfg.Corpus.RequestsPerSecond,
		BurstSize:         cfg.Corpus.Burst,
	})
	embedLimiter := ratelimit.ForService(ratelimit.ServiceEmbedding, ratelimit.Config{
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		BurstSize:         cfg.Embedding.Burst,
	})
	indexLimiter := ratelimit.ForService(ratelimit.ServiceIndex, ratelimit.Config{
		RequestsPerSecond: cfg.Index.RequestsPerSecond,
		BurstSize:         cfg.Index.Burst,
	})

	if c.Corpus, err = c.buildCorpus(ctx, corpusLimiter); err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	c.closers = append(c.closers, c.Corpus.Close)

	if cfg.Chunking.BPEDir != "" {
		chunker.UseBPEDir(cfg.Chunking.BPEDir)
	}
	textChunker, err := postprocessors.Default().Build(cfg.Chunking.Strategy, postprocessors.Options{
		Size:     cfg.Chunking.Size,
		Overlap:  cfg.Chunking.Overlap,
		Unit:     cfg.Chunking.Unit,
		Encoding: cfg.Chunking.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	if c.Embedder, err = c.buildEmbedder(ctx); err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	c.closers = append(c.closers, c.Embedder.Close)

	if c.Index, err = c.buildIndex(ctx, c.Embedder.Dimensions()); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	c.closers = append(c.closers, c.Index.Close)

	if cfg.Sync.Reconcile {
		if c.Manifest, err = buildManifest(cfg.Sync); err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
		c.closers = append(c.closers, c.Manifest.Close)
	}

	if err := pdf.CheckAvailable(); err != nil {
		logger.Warn("PDF documents will fail extraction", "error", err, "help", pdf.InstallInstructions())
	}

	c.Sync, err = services.NewSyncOrchestrator(services.SyncDeps{
		Lister:       c.Corpus,
		Extractor:    normalisers.Default(c.Corpus),
		Chunker:      textChunker,
		Embedder:     c.Embedder,
		Index:        c.Index,
		Manifest:     c.Manifest,
		EmbedLimiter: embedLimiter,
		IndexLimiter: indexLimiter,
	}, SyncConfig(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.Sync.Interval.Duration > 0 {
		c.Scheduler = services.NewScheduler(cfg.Sync.Interval.Duration, cfg.Sync.RunOnStart, c.Sync)
	}
	if cfg.Corpus.Watch {
		fsCorpus, ok := c.Corpus.(*filesystem.Corpus)
		if !ok {
			return nil, fmt.Errorf("corpus: %s does not support watching", cfg.Corpus.Provider)
		}
		watcher := filesystem.NewWatcher(fsCorpus, cfg.Corpus.WatchDebounce.Duration)
		c.Watcher = services.NewWatchTrigger(watcher, c.Sync)
	}

	logger.Info("pipeline ready",
		"corpus", cfg.Corpus.Provider,
		"root", c.Corpus.Root(),
		"chunking", cfg.Chunking.Strategy,
		"embedder", c.Embedder.ModelName(),
		"dimensions", c.Embedder.Dimensions(),
		"index", c.Index.Name(),
		"reconcile", c.Manifest != nil,
		"watch", c.Watcher != nil)
	return c, nil
}

// SyncConfig maps the file configuration onto orchestrator limits.
func SyncConfig(cfg *file.Config) services.SyncConfig {
	return services.SyncConfig{
		ExtractWorkers:    cfg.Sync.Workers,
		EmbedBatchSize:    cfg.Embedding.BatchSize,
		EmbedBatchBytes:   cfg.Embedding.MaxBatchBytes,
		EmbedConcurrency:  cfg.Embedding.Concurrency,
		UpsertBatchSize:   cfg.Index.BatchSize,
		UpsertBatchBytes:  cfg.Index.MaxRequestBytes,
		UpsertAttempts:    cfg.Index.Attempts,
		UpsertConcurrency: cfg.Index.Concurrency,
		DeleteBatchSize:   cfg.Index.DeleteBatchSize,
		Backoff: gax.Backoff{
			Initial:    cfg.Index.BackoffInitial.Duration,
			Max:        cfg.Index.BackoffMax.Duration,
			Multiplier: cfg.Index.BackoffMultiplier,
		},
		Reconcile:         cfg.Sync.Reconcile,
		FilterUnsupported: cfg.Sync.FilterUnsupported,
	}
}

func (c *Container) buildCorpus(ctx context.Context, limiter driven.RateLimiter) (driven.Corpus, error) {
	cfg := c.Config.Corpus
	switch cfg.Provider {
	case "filesystem":
		return filesystem.New(cfg.Root, filesystem.Options{
			Recursive:      cfg.Recursive,
			MaxContentSize: cfg.MaxContentSize,
		})
	case "drive":
		ts, err := c.tokenSource(ctx, google.DriveScopes...)
		if err != nil {
			return nil, err
		}
		svc, err := google.NewDriveService(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("drive client: %w", err)
		}
		dcfg := drive.DefaultConfig()
		dcfg.FolderID = cfg.Root
		dcfg.Recursive = cfg.Recursive
		dcfg.SharedDrives = cfg.SharedDrives
		if cfg.PageSize > 0 {
			dcfg.PageSize = cfg.PageSize
		}
		if cfg.MaxContentSize > 0 {
			dcfg.MaxContentSize = cfg.MaxContentSize
		}
		return drive.New(svc, dcfg, limiter)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func (c *Container) buildEmbedder(ctx context.Context) (driven.EmbeddingService, error) {
	return ai.CreateAndValidateEmbeddingService(ctx, c.Config.Embedding, ai.Google{
		Project:  c.Config.Google.Project,
		Location: c.Config.Google.Location,
		Client:   c.aiPlatform,
	})
}

func (c *Container) buildIndex(ctx context.Context, dimensions int) (driven.VectorIndex, error) {
	cfg := c.Config.Index
	switch cfg.Provider {
	case "vertex":
		svc, err := c.aiPlatform(ctx)
		if err != nil {
			return nil, err
		}
		return vertexindex.NewIndex(svc, vertexindex.Config{
			Project:    c.Config.Google.Project,
			Location:   c.Config.Google.Location,
			IndexID:    cfg.IndexID,
			Dimensions: dimensions,
		})
	case "qdrant":
		return qdrant.Open(ctx, qdrant.Config{
			URL:        cfg.URL,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
			Dimensions: dimensions,
		})
	case "milvus":
		return milvus.Open(ctx, milvus.Config{
			Address:    cfg.URL,
			Username:   cfg.Username,
			Password:   cfg.Password,
			Collection: cfg.Collection,
			Dimensions: dimensions,
		})
	case "pgvector":
		return pgvector.Open(ctx, pgvector.Config{
			DSN:        cfg.DSN,
			Table:      cfg.Table,
			Dimensions: dimensions,
		})
	case "memory":
		return memoryindex.NewIndex(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func buildManifest(cfg file.SyncConfig) (driven.ManifestStore, error) {
	switch cfg.Manifest {
	case "sqlite":
		return sqlite.NewStore(cfg.DataDir)
	case "memory":
		return memorystore.NewManifestStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Manifest)
	}
}

// tokenSource returns a Google token source for scopes, loading credentials
// once per scope set.
func (c *Container) tokenSource(ctx context.Context, scopes ...string) (oauth2.TokenSource, error) {
	key := fmt.Sprint(scopes)
	if ts, ok := c.tokenSources[key]; ok {
		return ts, nil
	}
	ts, err := google.TokenSource(ctx, c.Config.Google.CredentialsFile, scopes...)
	if err != nil {
		return nil, err
	}
	c.tokenSources[key] = ts
	return ts, nil
}

// aiPlatform returns the shared Vertex AI client used by both the embedder
// and the index writer.
func (c *Container) aiPlatform(ctx context.Context) (*aiplatform.Service, error) {
	if c.aiClient != nil {
		return c.aiClient, nil
	}
	ts, err := c.tokenSource(ctx, google.AIPlatformScopes...)
	if err != nil {
		return nil, err
	}
	svc, err := google.NewAIPlatformService(ctx, ts, c.Config.Google.Location)
	if err != nil {
		return nil, fmt.Errorf("vertex ai client: %w", err)
	}
	c.aiClient = svc
	return svc, nil
}

// Close stops the triggers and releases every handle in reverse order of
// creation.
func (c *Container) Close() error {
	var errs []error
	if c.Scheduler != nil {
		errs = append(errs, c.Scheduler.Stop())
	}
	if c.Watcher != nil {
		errs = append(errs, c.Watcher.Stop())
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}
