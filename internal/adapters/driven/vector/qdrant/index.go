// Package qdrant provides a vector index adapter for Qdrant over gRPC.
//
// Qdrant point ids must be unsigned integers or UUIDs, so each chunk id is
// mapped to a name-based (SHA-1) UUID. The mapping is deterministic, which
// keeps upserts idempotent across runs; the chunk id itself is kept in the
// point payload.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "docsync"
	defaultGRPCPort   = 6334
)

// Payload keys written with every point.
const (
	PayloadChunkID    = "chunk_id"
	PayloadDocumentID = "document_id"
)

// pointNamespace seeds the chunk-id to point-id mapping.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docsync/qdrant/points"))

// Config holds connection and collection settings.
type Config struct {
	// URL is the Qdrant HTTP address; the gRPC port is the HTTP port + 1.
	URL string

	// APIKey authenticates against Qdrant Cloud. Empty for local servers.
	APIKey string

	// Collection is the collection name (default: docsync).
	Collection string

	// Dimensions is the vector size. The collection is created with it when
	// missing and checked against it otherwise.
	Dimensions int
}

// Index writes points into one Qdrant collection.
type Index struct {
	client     *qdrant.Client
	collection string
	dimensions int
}

// Open connects to Qdrant and makes sure the collection exists with the
// configured dimension.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: qdrant dimensions must be positive", domain.ErrInvalidInput)
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	qcfg, err := clientConfig(cfg.URL, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: create client: %w", err)
	}

	x := &Index{client: client, collection: cfg.Collection, dimensions: cfg.Dimensions}
	if err := x.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return x, nil
}

// clientConfig derives the gRPC client settings from an HTTP URL.
func clientConfig(rawURL, apiKey string) (*qdrant.Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant url: %w", domain.ErrInvalidInput, err)
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := defaultGRPCPort
	if p := u.Port(); p != "" {
		httpPort, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: qdrant port %q", domain.ErrInvalidInput, p)
		}
		port = httpPort + 1
	}
	return &qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: strings.EqualFold(u.Scheme, "https"),
	}, nil
}

func (x *Index) ensureCollection(ctx context.Context) error {
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("qdrant: check collection: %w", classify(err))
	}

	if !exists {
		logger.Info("creating qdrant collection", "collection", x.collection, "dimensions", x.dimensions)
		err := x.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: x.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(x.dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("qdrant: create collection: %w", classify(err))
		}
		return nil
	}

	info, err := x.client.GetCollectionInfo(ctx, x.collection)
	if err != nil {
		return fmt.Errorf("qdrant: collection info: %w", classify(err))
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size == 0 {
		return fmt.Errorf("qdrant: collection %s has no single unnamed vector", x.collection)
	}
	if int(size) != x.dimensions {
		return fmt.Errorf("%w: collection %s holds %d-dimensional vectors, configured %d",
			domain.ErrDimensionMismatch, x.collection, size, x.dimensions)
	}
	return nil
}

// Name returns the backend name.
func (x *Index) Name() string { return "qdrant" }

// Dimensions returns the collection vector size.
func (x *Index) Dimensions() int { return x.dimensions }

// Upsert writes points and waits until they are applied.
func (x *Index) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         toPoints(records),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", classify(err))
	}
	return nil
}

// Delete removes points by chunk id.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(PointID(id))
	}
	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: x.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete: %w", classify(err))
	}
	return nil
}

// Close closes the gRPC connection.
func (x *Index) Close() error {
	return x.client.Close()
}

// PointID maps a chunk id to its Qdrant point id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func toPoints(records []domain.IndexRecord) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		payload := map[string]any{PayloadChunkID: r.DatapointID}
		if docID, _, ok := domain.ParseChunkID(r.DatapointID); ok {
			payload[PayloadDocumentID] = docID
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(r.DatapointID)),
			Vectors: qdrant.NewVectors(r.FeatureVector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}
	return points
}

// classify maps gRPC status codes onto the pipeline's retry classes.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		return &domain.ThrottledError{Err: err}
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition:
		return fmt.Errorf("%w: %w", domain.ErrPermanent, err)
	default:
		return err
	}
}
