// Package vertex provides a vector index adapter for Vertex AI Vector Search
// streaming indexes.
package vertex

import (
	"context"
	"fmt"

	"google.golang.org/api/aiplatform/v1"

	"github.com/seconds-0/slack-support-bot/internal/connectors/google"
	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Config identifies a streaming-update index.
type Config struct {
	Project    string
	Location   string
	IndexID    string
	Dimensions int
}

// Index writes datapoints into a pre-created Vertex AI index.
type Index struct {
	svc        *aiplatform.Service
	name       string
	dimensions int
}

// NewIndex creates an index writer on an existing API client.
func NewIndex(svc *aiplatform.Service, cfg Config) (*Index, error) {
	switch {
	case svc == nil:
		return nil, fmt.Errorf("vertex index: service is required")
	case cfg.Project == "" || cfg.Location == "" || cfg.IndexID == "":
		return nil, fmt.Errorf("%w: vertex index needs project, location and index id", domain.ErrInvalidInput)
	case cfg.Dimensions <= 0:
		return nil, fmt.Errorf("%w: vertex index dimensions must be positive", domain.ErrInvalidInput)
	}
	return &Index{
		svc:        svc,
		name:       fmt.Sprintf("projects/%s/locations/%s/indexes/%s", cfg.Project, cfg.Location, cfg.IndexID),
		dimensions: cfg.Dimensions,
	}, nil
}

// Name returns the backend name.
func (x *Index) Name() string { return "vertex" }

// Dimensions returns the configured vector size.
func (x *Index) Dimensions() int { return x.dimensions }

// Upsert streams datapoints into the index. Datapoints with an existing id
// are overwritten.
func (x *Index) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*aiplatform.GoogleCloudAiplatformV1IndexDatapoint, len(records))
	for i, r := range records {
		points[i] = &aiplatform.GoogleCloudAiplatformV1IndexDatapoint{
			DatapointId:   r.DatapointID,
			FeatureVector: widen(r.FeatureVector),
		}
	}

	_, err := x.svc.Projects.Locations.Indexes.UpsertDatapoints(x.name,
		&aiplatform.GoogleCloudAiplatformV1UpsertDatapointsRequest{Datapoints: points}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("vertex upsert datapoints: %w", google.Classify(err))
	}
	return nil
}

// Delete removes datapoints by id.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := x.svc.Projects.Locations.Indexes.RemoveDatapoints(x.name,
		&aiplatform.GoogleCloudAiplatformV1RemoveDatapointsRequest{DatapointIds: ids}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("vertex remove datapoints: %w", google.Classify(err))
	}
	return nil
}

// Close releases resources.
func (x *Index) Close() error { return nil }

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
