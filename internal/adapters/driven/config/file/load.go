package file

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Default file locations, relative to the working directory.
const (
	DefaultPath    = "docsync.toml"
	DefaultEnvFile = ".env"
)

// Default environment variable names for secrets.
const (
	DefaultOpenAIKeyEnv      = "OPENAI_API_KEY"
	DefaultQdrantKeyEnv      = "QDRANT_API_KEY"
	DefaultMilvusPasswordEnv = "MILVUS_PASSWORD"
	DefaultDSNEnv            = "DATABASE_URL"
)

// Load reads the .env file (when present), then the TOML file over the
// defaults, then DOCSYNC_* overrides, resolves secrets and validates.
//
// An empty path reads DefaultPath if it exists. An explicit path must exist.
// An empty envFile reads DefaultEnvFile if it exists.
func Load(path, envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	// Variables already set in the environment win over the file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Defaults and environment only.
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	resolveSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// decode unmarshals TOML over cfg, rejecting unknown keys.
func decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var missing *toml.StrictMissingError
		if errors.As(err, &missing) {
			return fmt.Errorf("unknown keys:\n%s", missing.String())
		}
		return err
	}
	return nil
}

// applyEnv applies DOCSYNC_* overrides.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"DOCSYNC_CORPUS_PROVIDER":    &cfg.Corpus.Provider,
		"DOCSYNC_CORPUS_ROOT":        &cfg.Corpus.Root,
		"DOCSYNC_EMBEDDING_PROVIDER": &cfg.Embedding.Provider,
		"DOCSYNC_EMBEDDING_MODEL":    &cfg.Embedding.Model,
		"DOCSYNC_INDEX_PROVIDER":     &cfg.Index.Provider,
		"DOCSYNC_INDEX_ID":           &cfg.Index.IndexID,
		"DOCSYNC_INDEX_URL":          &cfg.Index.URL,
		"DOCSYNC_GOOGLE_PROJECT":     &cfg.Google.Project,
		"DOCSYNC_GOOGLE_LOCATION":    &cfg.Google.Location,
		"DOCSYNC_GOOGLE_CREDENTIALS": &cfg.Google.CredentialsFile,
		"DOCSYNC_SERVER_ADDR":        &cfg.Server.Addr,
		"DOCSYNC_LOG_LEVEL":          &cfg.Log.Level,
		"DOCSYNC_LOG_FORMAT":         &cfg.Log.Format,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	// Container platforms announce the listen port this way.
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCSYNC_SERVER_ADDR") == "" {
		cfg.Server.Addr = ":" + port
	}

	if v := os.Getenv("DOCSYNC_SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOCSYNC_SYNC_INTERVAL: %w", err)
		}
		cfg.Sync.Interval = Duration{d}
	}
	return nil
}

// resolveSecrets fills secret fields from the environment variables the
// configuration names, defaulting the names per provider.
func resolveSecrets(cfg *Config) {
	if cfg.Embedding.APIKeyEnv == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKeyEnv = DefaultOpenAIKeyEnv
	}
	if cfg.Embedding.APIKeyEnv != "" {
		cfg.Embedding.APIKey = os.Getenv(cfg.Embedding.APIKeyEnv)
	}

	switch cfg.Index.Provider {
	case "qdrant":
		if cfg.Index.APIKeyEnv == "" {
			cfg.Index.APIKeyEnv = DefaultQdrantKeyEnv
		}
	case "milvus":
		if cfg.Index.PasswordEnv == "" {
			cfg.Index.PasswordEnv = DefaultMilvusPasswordEnv
		}
	case "pgvector":
		if cfg.Index.DSNEnv == "" {
			cfg.Index.DSNEnv = DefaultDSNEnv
		}
	}
	if cfg.Index.APIKeyEnv != "" {
		cfg.Index.APIKey = os.Getenv(cfg.Index.APIKeyEnv)
	}
	if cfg.Index.PasswordEnv != "" {
		cfg.Index.Password = os.Getenv(cfg.Index.PasswordEnv)
	}
	if cfg.Index.DSNEnv != "" {
		cfg.Index.DSN = os.Getenv(cfg.Index.DSNEnv)
	}
}
