// Package milvus provides a vector index adapter for Milvus.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultAddress    = "localhost:19530"
	DefaultCollection = "docsync"
)

// Collection field names.
const (
	FieldID         = "id"
	FieldDocumentID = "document_id"
	FieldVector     = "vector"
)

const maxIDLength = 1024

// Config holds connection and collection settings.
type Config struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Dimensions int
}

// Index writes rows into one Milvus collection keyed by chunk id.
type Index struct {
	client     *milvusclient.Client
	collection string
	dimensions int
}

// Open connects to Milvus, creates the collection when missing and loads it.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: milvus dimensions must be positive", domain.ErrInvalidInput)
	}
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("milvus: connect %s: %w", cfg.Address, err)
	}

	x := &Index{client: client, collection: cfg.Collection, dimensions: cfg.Dimensions}
	if err := x.ensureCollection(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	return x, nil
}

// schema describes the collection: a varchar primary key, the owning
// document and the dense vector.
func schema(collection string, dimensions int) *entity.Schema {
	return &entity.Schema{
		CollectionName: collection,
		Description:    "docsync chunk vectors",
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxIDLength)},
			},
			{
				Name:       FieldDocumentID,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxIDLength)},
			},
			{
				Name:       FieldVector,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dimensions)},
			},
		},
	}
}

func (x *Index) ensureCollection(ctx context.Context) error {
	exists, err := x.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(x.collection))
	if err != nil {
		return fmt.Errorf("milvus: check collection: %w", err)
	}

	if !exists {
		logger.Info("creating milvus collection", "collection", x.collection, "dimensions", x.dimensions)
		err := x.client.CreateCollection(ctx,
			milvusclient.NewCreateCollectionOption(x.collection, schema(x.collection, x.dimensions)))
		if err != nil {
			return fmt.Errorf("milvus: create collection: %w", err)
		}
		task, err := x.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(
			x.collection, FieldVector, index.NewHNSWIndex(entity.COSINE, 16, 200)))
		if err != nil {
			return fmt.Errorf("milvus: create index: %w", err)
		}
		if err := task.Await(ctx); err != nil {
			return fmt.Errorf("milvus: wait for index: %w", err)
		}
	} else {
		coll, err := x.client.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(x.collection))
		if err != nil {
			return fmt.Errorf("milvus: describe collection: %w", err)
		}
		dim, err := vectorDimension(coll.Schema)
		if err != nil {
			return fmt.Errorf("milvus: collection %s: %w", x.collection, err)
		}
		if dim != x.dimensions {
			return fmt.Errorf("%w: collection %s holds %d-dimensional vectors, configured %d",
				domain.ErrDimensionMismatch, x.collection, dim, x.dimensions)
		}
	}

	load, err := x.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(x.collection))
	if err != nil {
		return fmt.Errorf("milvus: load collection: %w", err)
	}
	if err := load.Await(ctx); err != nil {
		return fmt.Errorf("milvus: wait for load: %w", err)
	}
	return nil
}

// vectorDimension reads the dim type parameter of the vector field.
func vectorDimension(s *entity.Schema) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("no schema")
	}
	for _, f := range s.Fields {
		if f.Name != FieldVector {
			continue
		}
		dim, err := strconv.Atoi(f.TypeParams["dim"])
		if err != nil {
			return 0, fmt.Errorf("vector field has no dimension: %w", err)
		}
		return dim, nil
	}
	return 0, fmt.Errorf("no %q field", FieldVector)
}

// Name returns the backend name.
func (x *Index) Name() string { return "milvus" }

// Dimensions returns the collection vector size.
func (x *Index) Dimensions() int { return x.dimensions }

// Upsert writes rows by primary key, replacing existing rows.
func (x *Index) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids, docIDs, vectors := columns(records)
	opt := milvusclient.NewColumnBasedInsertOption(x.collection).
		WithVarcharColumn(FieldID, ids).
		WithVarcharColumn(FieldDocumentID, docIDs).
		WithFloatVectorColumn(FieldVector, x.dimensions, vectors)
	if _, err := x.client.Upsert(ctx, opt); err != nil {
		return fmt.Errorf("milvus upsert: %w", err)
	}
	return nil
}

// Delete removes rows by chunk id.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := x.client.Delete(ctx, milvusclient.NewDeleteOption(x.collection).WithStringIDs(FieldID, ids))
	if err != nil {
		return fmt.Errorf("milvus delete: %w", err)
	}
	return nil
}

// Close closes the connection.
func (x *Index) Close() error {
	return x.client.Close(context.Background())
}

// columns splits records into the column-based insert layout.
func columns(records []domain.IndexRecord) (ids, docIDs []string, vectors [][]float32) {
	ids = make([]string, len(records))
	docIDs = make([]string, len(records))
	vectors = make([][]float32, len(records))
	for i, r := range records {
		ids[i] = r.DatapointID
		if docID, _, ok := domain.ParseChunkID(r.DatapointID); ok {
			docIDs[i] = docID
		}
		vectors[i] = r.FeatureVector
	}
	return ids, docIDs, vectors
}
