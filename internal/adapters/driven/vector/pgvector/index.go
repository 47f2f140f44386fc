// Package pgvector provides a vector index adapter for PostgreSQL with the
// pgvector extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultTable is the table used when none is configured.
const DefaultTable = "docsync_chunks"

// Config holds connection and table settings.
type Config struct {
	// DSN is a PostgreSQL connection string.
	DSN string

	// Table holds one row per chunk (default: docsync_chunks).
	Table string

	// Dimensions is the vector column size.
	Dimensions int
}

// Index writes rows into one pgvector table keyed by chunk id.
type Index struct {
	pool       *pgxpool.Pool
	table      string
	dimensions int
}

// Open connects, creates the extension and table when missing, and checks
// the vector column size of an existing table.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: pgvector dimensions must be positive", domain.ErrInvalidInput)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: pgvector dsn is required", domain.ErrInvalidInput)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	x := &Index{
		pool:       pool,
		table:      pgx.Identifier{cfg.Table}.Sanitize(),
		dimensions: cfg.Dimensions,
	}
	if err := x.migrate(ctx, cfg.Table); err != nil {
		pool.Close()
		return nil, err
	}
	return x, nil
}

func createTableSQL(table string, dimensions int) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	embedding   vector(%d) NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`, table, dimensions)
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (id, document_id, embedding)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	embedding   = EXCLUDED.embedding,
	updated_at  = now()`, table)
}

func (x *Index) migrate(ctx context.Context, rawTable string) error {
	if _, err := x.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("pgvector: create extension: %w", classify(err))
	}
	if _, err := x.pool.Exec(ctx, createTableSQL(x.table, x.dimensions)); err != nil {
		return fmt.Errorf("pgvector: create table: %w", classify(err))
	}

	// pgvector stores the declared dimension as the column type modifier.
	var dim int
	err := x.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = to_regclass($1) AND attname = 'embedding'`,
		rawTable).Scan(&dim)
	if err != nil {
		return fmt.Errorf("pgvector: read vector column: %w", err)
	}
	if dim > 0 && dim != x.dimensions {
		return fmt.Errorf("%w: table %s holds %d-dimensional vectors, configured %d",
			domain.ErrDimensionMismatch, rawTable, dim, x.dimensions)
	}
	logger.Debug("pgvector table ready", "table", rawTable, "dimensions", x.dimensions)
	return nil
}

// Name returns the backend name.
func (x *Index) Name() string { return "pgvector" }

// Dimensions returns the vector column size.
func (x *Index) Dimensions() int { return x.dimensions }

// Upsert writes the batch in one transaction, overwriting rows by id.
func (x *Index) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	stmt := upsertSQL(x.table)
	err := pgx.BeginFunc(ctx, x.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range records {
			docID, _, _ := domain.ParseChunkID(r.DatapointID)
			batch.Queue(stmt, r.DatapointID, docID, pgv.NewVector(r.FeatureVector))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("pgvector upsert: %w", classify(err))
	}
	return nil
}

// Delete removes rows by chunk id.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := x.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, x.table), ids)
	if err != nil {
		return fmt.Errorf("pgvector delete: %w", classify(err))
	}
	return nil
}

// Close closes the pool.
func (x *Index) Close() error {
	x.pool.Close()
	return nil
}

// classify marks data, constraint and schema errors as permanent.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == "53300":
		return &domain.ThrottledError{Err: err}
	case strings.HasPrefix(pgErr.Code, "22"),
		strings.HasPrefix(pgErr.Code, "23"),
		strings.HasPrefix(pgErr.Code, "42"):
		return fmt.Errorf("%w: %w", domain.ErrPermanent, err)
	default:
		return err
	}
}
