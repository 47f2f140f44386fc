// Package vertex provides an embedding service adapter using Vertex AI
// text embedding models through the publisher-model predict endpoint.
package vertex

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/api/aiplatform/v1"

	"github.com/seconds-0/slack-support-bot/internal/connectors/google"
	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel    = "text-embedding-005"
	DefaultLocation = "us-central1"
	DefaultTaskType = "RETRIEVAL_DOCUMENT"
)

// Model dimensions for Vertex AI text embedding models.
var modelDimensions = map[string]int{
	"text-embedding-005":              768,
	"text-embedding-004":              768,
	"text-multilingual-embedding-002": 768,
	"textembedding-gecko@003":         768,
	"gemini-embedding-001":            3072,
}

// Config holds configuration for the Vertex AI embedding service.
type Config struct {
	// Project is the Google Cloud project id (required).
	Project string

	// Location is the Vertex AI region (default: us-central1).
	Location string

	// Model is the publisher model id (default: text-embedding-005).
	Model string

	// TaskType tells the model how the vectors will be used
	// (default: RETRIEVAL_DOCUMENT).
	TaskType string

	// Dimensions requests a reduced output dimensionality when non-zero.
	Dimensions int
}

// EmbeddingService generates embeddings using Vertex AI.
type EmbeddingService struct {
	svc        *aiplatform.Service
	endpoint   string
	model      string
	taskType   string
	dimensions int
	reduced    bool
}

type instance struct {
	Content  string `json:"content"`
	TaskType string `json:"task_type,omitempty"`
}

type parameters struct {
	AutoTruncate         bool `json:"autoTruncate"`
	OutputDimensionality int  `json:"outputDimensionality,omitempty"`
}

type prediction struct {
	Embeddings struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// NewEmbeddingService creates a Vertex AI embedding service on an existing
// API client.
func NewEmbeddingService(svc *aiplatform.Service, cfg Config) (*EmbeddingService, error) {
	if svc == nil {
		return nil, fmt.Errorf("vertex: service is required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("vertex: project is required")
	}
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.TaskType == "" {
		cfg.TaskType = DefaultTaskType
	}

	dimensions, ok := modelDimensions[cfg.Model]
	if !ok && cfg.Dimensions == 0 {
		return nil, fmt.Errorf("vertex: unknown model %q; set dimensions explicitly", cfg.Model)
	}
	reduced := cfg.Dimensions > 0 && cfg.Dimensions != dimensions
	if cfg.Dimensions > 0 {
		dimensions = cfg.Dimensions
	}

	return &EmbeddingService{
		svc:        svc,
		endpoint:   fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", cfg.Project, cfg.Location, cfg.Model),
		model:      cfg.Model,
		taskType:   cfg.TaskType,
		dimensions: dimensions,
		reduced:    reduced,
	}, nil
}

// EmbedBatch generates one embedding per text in a single predict call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	instances := make([]any, len(texts))
	for i, t := range texts {
		instances[i] = instance{Content: t, TaskType: s.taskType}
	}
	params := parameters{AutoTruncate: true}
	if s.reduced {
		params.OutputDimensionality = s.dimensions
	}

	resp, err := s.svc.Projects.Locations.Publishers.Models.Predict(s.endpoint,
		&aiplatform.GoogleCloudAiplatformV1PredictRequest{
			Instances:  instances,
			Parameters: params,
		}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("vertex predict: %w", google.Classify(err))
	}

	if len(resp.Predictions) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d instances, got %d predictions",
			domain.ErrLengthMismatch, len(texts), len(resp.Predictions))
	}
	out := make([][]float32, len(resp.Predictions))
	for i, raw := range resp.Predictions {
		var p prediction
		if err := remarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode prediction %d: %w", i, err)
		}
		out[i] = p.Embeddings.Values
	}
	return out, nil
}

// remarshal converts a generic JSON value into a typed struct.
func remarshal(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
