package file

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Provider names accepted in the configuration.
var (
	CorpusProviders    = []string{"drive", "filesystem"}
	EmbeddingProviders = []string{"vertex", "openai", "ollama", "hash"}
	IndexProviders     = []string{"vertex", "qdrant", "milvus", "pgvector", "memory"}
	ManifestBackends   = []string{"sqlite", "memory"}
	ChunkStrategies    = []string{"recursive", "fixed"}
	ChunkUnits         = []string{"characters", "tokens"}
	LogFormats         = []string{"text", "json"}
)

// Duration is a time.Duration read from a TOML string such as "90s" or "1h".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the whole docsync configuration.
type Config struct {
	Google    GoogleConfig    `toml:"google"`
	Corpus    CorpusConfig    `toml:"corpus"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Index     IndexConfig     `toml:"index"`
	Sync      SyncConfig      `toml:"sync"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// GoogleConfig is shared by the Drive corpus and the Vertex AI providers.
type GoogleConfig struct {
	// CredentialsFile is a service account or authorized-user JSON file.
	// Empty uses Application Default Credentials.
	CredentialsFile string `toml:"credentials_file"`
	Project         string `toml:"project"`
	Location        string `toml:"location"`
}

// CorpusConfig selects and tunes the document source.
type CorpusConfig struct {
	Provider          string  `toml:"provider"`
	Root              string  `toml:"root"`
	Recursive         bool    `toml:"recursive"`
	SharedDrives      bool    `toml:"shared_drives"`
	PageSize          int64   `toml:"page_size"`
	MaxContentSize    int64   `toml:"max_content_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`

	// Watch triggers a pass on local changes while serving (filesystem only).
	Watch         bool     `toml:"watch"`
	WatchDebounce Duration `toml:"watch_debounce"`
}

// ChunkingConfig holds the chunker parameters.
type ChunkingConfig struct {
	Strategy string `toml:"strategy"`
	Size     int    `toml:"size"`
	Overlap  int    `toml:"overlap"`
	Unit     string `toml:"unit"`
	Encoding string `toml:"encoding"`
	// BPEDir holds pre-downloaded tiktoken rank files for offline hosts.
	BPEDir string `toml:"bpe_dir"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider          string   `toml:"provider"`
	Model             string   `toml:"model"`
	Dimensions        int      `toml:"dimensions"`
	TaskType          string   `toml:"task_type"`
	BaseURL           string   `toml:"base_url"`
	APIKeyEnv         string   `toml:"api_key_env"`
	Timeout           Duration `toml:"timeout"`
	BatchSize         int      `toml:"batch_size"`
	MaxBatchBytes     int      `toml:"max_batch_bytes"`
	Concurrency       int      `toml:"concurrency"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`

	// APIKey is resolved from APIKeyEnv and never read from the file.
	APIKey string `toml:"-"`
}

// IndexConfig selects and tunes the vector index.
type IndexConfig struct {
	Provider          string   `toml:"provider"`
	IndexID           string   `toml:"index_id"`
	URL               string   `toml:"url"`
	Collection        string   `toml:"collection"`
	Table             string   `toml:"table"`
	Username          string   `toml:"username"`
	PasswordEnv       string   `toml:"password_env"`
	APIKeyEnv         string   `toml:"api_key_env"`
	DSNEnv            string   `toml:"dsn_env"`
	BatchSize         int      `toml:"batch_size"`
	MaxRequestBytes   int      `toml:"max_request_bytes"`
	DeleteBatchSize   int      `toml:"delete_batch_size"`
	Attempts          int      `toml:"attempts"`
	Concurrency       int      `toml:"concurrency"`
	BackoffInitial    Duration `toml:"backoff_initial"`
	BackoffMax        Duration `toml:"backoff_max"`
	BackoffMultiplier float64  `toml:"backoff_multiplier"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`

	// Secrets resolved from the *_env names.
	Password string `toml:"-"`
	APIKey   string `toml:"-"`
	DSN      string `toml:"-"`
}

// SyncConfig controls the orchestrator.
type SyncConfig struct {
	Workers           int      `toml:"workers"`
	FilterUnsupported bool     `toml:"filter_unsupported"`
	Reconcile         bool     `toml:"reconcile"`
	Manifest          string   `toml:"manifest"`
	DataDir           string   `toml:"data_dir"`
	Interval          Duration `toml:"interval"`
	RunOnStart        bool     `toml:"run_on_start"`
	Timeout           Duration `toml:"timeout"`
}

// ServerConfig configures the HTTP trigger.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Verbose bool   `toml:"verbose"`
}

// Default returns the configuration used for every key the file omits.
func Default() Config {
	return Config{
		Google: GoogleConfig{Location: "us-central1"},
		Corpus: CorpusConfig{
			Provider:       "drive",
			Root:           "root",
			SharedDrives:   true,
			PageSize:       100,
			MaxContentSize: 10 << 20,
			WatchDebounce:  Duration{2 * time.Second},
		},
		Chunking: ChunkingConfig{
			Strategy: "recursive",
			Size:     1000,
			Overlap:  200,
			Unit:     "characters",
			Encoding: "cl100k_base",
		},
		Embedding: EmbeddingConfig{
			Provider:      "vertex",
			Timeout:       Duration{60 * time.Second},
			BatchSize:     5,
			MaxBatchBytes: 30000,
			Concurrency:   1,
		},
		Index: IndexConfig{
			Provider:          "vertex",
			BatchSize:         100,
			MaxRequestBytes:   4 << 20,
			DeleteBatchSize:   100,
			Attempts:          3,
			Concurrency:       1,
			BackoffInitial:    Duration{time.Second},
			BackoffMax:        Duration{30 * time.Second},
			BackoffMultiplier: 2,
		},
		Sync: SyncConfig{
			Workers:  4,
			Manifest: "sqlite",
			DataDir:  ".docsync",
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	oneOf := func(field, value string, allowed []string) {
		check(slices.Contains(allowed, value), "%s: unknown value %q (want one of %s)",
			field, value, strings.Join(allowed, ", "))
	}

	oneOf("corpus.provider", c.Corpus.Provider, CorpusProviders)
	check(strings.TrimSpace(c.Corpus.Root) != "", "corpus.root is required")
	if c.Corpus.Watch {
		check(c.Corpus.Provider == "filesystem", "corpus.watch is only supported by the filesystem corpus")
		check(c.Corpus.WatchDebounce.Duration >= 0, "corpus.watch_debounce must not be negative")
	}

	check(c.Chunking.Size > 0, "chunking.size must be positive")
	check(c.Chunking.Overlap >= 0, "chunking.overlap must not be negative")
	check(c.Chunking.Overlap < c.Chunking.Size, "chunking.overlap (%d) must be smaller than chunking.size (%d)",
		c.Chunking.Overlap, c.Chunking.Size)
	oneOf("chunking.strategy", c.Chunking.Strategy, ChunkStrategies)
	oneOf("chunking.unit", c.Chunking.Unit, ChunkUnits)

	oneOf("embedding.provider", c.Embedding.Provider, EmbeddingProviders)
	check(c.Embedding.BatchSize > 0, "embedding.batch_size must be positive")
	check(c.Embedding.MaxBatchBytes >= 0, "embedding.max_batch_bytes must not be negative")
	check(c.Embedding.Concurrency > 0, "embedding.concurrency must be positive")
	if c.Embedding.Provider == "openai" {
		check(c.Embedding.APIKey != "", "embedding: openai needs an API key in $%s", c.Embedding.APIKeyEnv)
	}

	oneOf("index.provider", c.Index.Provider, IndexProviders)
	check(c.Index.BatchSize > 0, "index.batch_size must be positive")
	check(c.Index.MaxRequestBytes >= 0, "index.max_request_bytes must not be negative")
	check(c.Index.Attempts > 0, "index.attempts must be positive")
	check(c.Index.Concurrency > 0, "index.concurrency must be positive")
	check(c.Index.DeleteBatchSize > 0, "index.delete_batch_size must be positive")
	switch c.Index.Provider {
	case "vertex":
		check(c.Index.IndexID != "", "index.index_id is required for vertex")
	case "pgvector":
		check(c.Index.DSN != "", "index: pgvector needs a connection string in $%s", c.Index.DSNEnv)
	}

	if c.Embedding.Provider == "vertex" || c.Index.Provider == "vertex" {
		check(c.Google.Project != "", "google.project is required for vertex")
		check(c.Google.Location != "", "google.location is required for vertex")
	}

	check(c.Sync.Workers > 0, "sync.workers must be positive")
	check(c.Sync.Interval.Duration >= 0, "sync.interval must not be negative")
	if c.Sync.Reconcile {
		oneOf("sync.manifest", c.Sync.Manifest, ManifestBackends)
	}

	oneOf("log.format", c.Log.Format, LogFormats)

	return errors.Join(errs...)
}
