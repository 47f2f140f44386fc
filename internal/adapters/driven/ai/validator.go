package ai

import (
	"context"
	"fmt"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// probeText is embedded once to validate a provider.
const probeText = "docsync connectivity check"

// pinger is implemented by providers with a cheap health endpoint.
type pinger interface {
	Ping(ctx context.Context) error
}

// ConfigValidator validates embedding providers before a run.
type ConfigValidator struct{}

// NewConfigValidator creates a new validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding pings the provider when it supports it, then embeds one
// probe text and checks the vector has the declared dimension.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if p, ok := svc.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("service unreachable: %w", err)
		}
	}

	vectors, err := svc.EmbedBatch(ctx, []string{probeText})
	if err != nil {
		return fmt.Errorf("probe embedding failed: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("%w: probe returned %d vectors for 1 text", domain.ErrLengthMismatch, len(vectors))
	}
	if got, want := len(vectors[0]), svc.Dimensions(); got != want {
		return fmt.Errorf("%w: %s returned %d dimensions, declared %d",
			domain.ErrDimensionMismatch, svc.ModelName(), got, want)
	}
	return nil
}
