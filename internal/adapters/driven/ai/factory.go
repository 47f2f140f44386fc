// Package ai creates and validates the embedding service named in
// configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/aiplatform/v1"

	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/config/file"
	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/seconds-0/slack-support-bot/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/seconds-0/slack-support-bot/internal/adapters/driven/embedding/openai"
	vertexembed "github.com/seconds-0/slack-support-bot/internal/adapters/driven/embedding/vertex"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 30 * time.Second

// Google supplies the Vertex AI client and project for the vertex provider.
type Google struct {
	Project  string
	Location string

	// Client returns the shared Vertex AI client, creating it on first use.
	Client func(ctx context.Context) (*aiplatform.Service, error)
}

// CreateAndValidateEmbeddingService creates an embedding service and checks
// it answers with vectors of its declared size. On failure the service is
// closed.
func CreateAndValidateEmbeddingService(ctx context.Context, cfg file.EmbeddingConfig, g Google) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, cfg, g)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := NewConfigValidator().ValidateEmbedding(pingCtx, svc); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%s: %w", cfg.Provider, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service for cfg.Provider.
func CreateEmbeddingService(ctx context.Context, cfg file.EmbeddingConfig, g Google) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "vertex":
		return createVertexEmbedding(ctx, cfg, g)

	case "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout.Duration,
			Dimensions: cfg.Dimensions,
		})

	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout.Duration,
			Dimensions: cfg.Dimensions,
		}), nil

	case "hash":
		return hash.NewEmbeddingService(cfg.Dimensions), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// createVertexEmbedding creates a Vertex AI embedding service.
func createVertexEmbedding(ctx context.Context, cfg file.EmbeddingConfig, g Google) (driven.EmbeddingService, error) {
	if g.Client == nil {
		return nil, fmt.Errorf("vertex: no Google client configured")
	}
	svc, err := g.Client(ctx)
	if err != nil {
		return nil, err
	}
	return vertexembed.NewEmbeddingService(svc, vertexembed.Config{
		Project:    g.Project,
		Location:   g.Location,
		Model:      cfg.Model,
		TaskType:   cfg.TaskType,
		Dimensions: cfg.Dimensions,
	})
}
