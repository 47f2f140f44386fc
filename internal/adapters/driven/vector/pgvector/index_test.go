package pgvector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

func TestSQL(t *testing.T) {
	create := createTableSQL(`"chunks"`, 768)
	assert.Contains(t, create, `CREATE TABLE IF NOT EXISTS "chunks"`)
	assert.Contains(t, create, "vector(768)")
	assert.Contains(t, create, "id          TEXT PRIMARY KEY")

	upsert := upsertSQL(`"chunks"`)
	assert.Contains(t, upsert, `INSERT INTO "chunks"`)
	assert.Contains(t, upsert, "ON CONFLICT (id) DO UPDATE")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code          string
		wantPermanent bool
		wantThrottled bool
	}{
		{"22000", true, false},
		{"23505", true, false},
		{"42P01", true, false},
		{"53300", false, true},
		{"40001", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := classify(fmt.Errorf("exec: %w", &pgconn.PgError{Code: tt.code, Message: "x"}))
			var te *domain.ThrottledError
			assert.Equal(t, tt.wantPermanent, errors.Is(err, domain.ErrPermanent))
			assert.Equal(t, tt.wantThrottled, errors.As(err, &te))
		})
	}

	plain := errors.New("conn reset")
	assert.Equal(t, plain, classify(plain))
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "postgres://x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Open(context.Background(), Config{Dimensions: 3})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestIndex_Live runs against a real database when PGVECTOR_DSN is set.
func TestIndex_Live(t *testing.T) {
	dsn := os.Getenv("PGVECTOR_DSN")
	if dsn == "" {
		t.Skip("PGVECTOR_DSN not set")
	}
	ctx := context.Background()
	table := "docsync_test_" + uuid.NewString()[:8]
	idx, err := Open(ctx, Config{DSN: dsn, Table: table, Dimensions: 2})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = idx.pool.Exec(ctx, "DROP TABLE IF EXISTS "+idx.table)
		_ = idx.Close()
	})

	records := []domain.IndexRecord{
		{DatapointID: "d_0", FeatureVector: []float32{1, 0}},
		{DatapointID: "d_1", FeatureVector: []float32{0, 1}},
	}
	require.NoError(t, idx.Upsert(ctx, records))
	require.NoError(t, idx.Upsert(ctx, records))

	count := func() int {
		var n int
		require.NoError(t, idx.pool.QueryRow(ctx, "SELECT count(*) FROM "+idx.table).Scan(&n))
		return n
	}
	assert.Equal(t, 2, count())

	err = idx.Upsert(ctx, []domain.IndexRecord{{DatapointID: "d_2", FeatureVector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrPermanent)

	require.NoError(t, idx.Delete(ctx, []string{"d_0", "missing_9"}))
	assert.Equal(t, 1, count())

	_, err = Open(ctx, Config{DSN: dsn, Table: table, Dimensions: 3})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
