package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/aiplatform/v1"

	"github.com/seconds-0/slack-support-bot/internal/adapters/driven/config/file"
	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         file.EmbeddingConfig
		wantModel   string
		wantDims    int
		errContains string
	}{
		{
			name:      "hash provider",
			cfg:       file.EmbeddingConfig{Provider: "hash", Dimensions: 48},
			wantModel: "fnv-hash",
			wantDims:  48,
		},
		{
			name:      "ollama provider",
			cfg:       file.EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text"},
			wantModel: "nomic-embed-text",
			wantDims:  768,
		},
		{
			name:      "openai provider",
			cfg:       file.EmbeddingConfig{Provider: "openai", APIKey: "test-key", Model: "text-embedding-3-small"},
			wantModel: "text-embedding-3-small",
			wantDims:  1536,
		},
		{
			name:        "openai without key",
			cfg:         file.EmbeddingConfig{Provider: "openai"},
			errContains: "API key",
		},
		{
			name:        "vertex without client",
			cfg:         file.EmbeddingConfig{Provider: "vertex"},
			errContains: "no Google client",
		},
		{
			name:        "unknown provider",
			cfg:         file.EmbeddingConfig{Provider: "magic"},
			errContains: "unsupported embedding provider: magic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(context.Background(), tt.cfg, Google{})
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateEmbeddingService_VertexClientError(t *testing.T) {
	boom := errors.New("no credentials")
	_, err := CreateEmbeddingService(context.Background(), file.EmbeddingConfig{Provider: "vertex"}, Google{
		Project: "p",
		Client:  func(context.Context) (*aiplatform.Service, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)
}

// ollamaServer answers /api/tags and /api/embed with vectors of dims length.
func ollamaServer(t *testing.T, dims int, tagsStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(tagsStatus)
			fmt.Fprint(w, `{"models":[]}`)
		case "/api/embed":
			vec := make([]float32, dims)
			vec[0] = 1
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"embeddings":[%s]}`, floats(vec))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func floats(v []float32) string {
	out := "["
	for i, f := range v {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprint(f)
	}
	return out + "]"
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	t.Run("hash validates offline", func(t *testing.T) {
		svc, err := CreateAndValidateEmbeddingService(context.Background(),
			file.EmbeddingConfig{Provider: "hash", Dimensions: 16}, Google{})
		require.NoError(t, err)
		assert.Equal(t, 16, svc.Dimensions())
	})

	t.Run("ollama with matching dimensions", func(t *testing.T) {
		srv := ollamaServer(t, 4, http.StatusOK)
		svc, err := CreateAndValidateEmbeddingService(context.Background(),
			file.EmbeddingConfig{Provider: "ollama", BaseURL: srv.URL, Dimensions: 4}, Google{})
		require.NoError(t, err)
		assert.Equal(t, 4, svc.Dimensions())
	})

	t.Run("ollama with wrong dimensions", func(t *testing.T) {
		srv := ollamaServer(t, 3, http.StatusOK)
		_, err := CreateAndValidateEmbeddingService(context.Background(),
			file.EmbeddingConfig{Provider: "ollama", BaseURL: srv.URL, Dimensions: 4}, Google{})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.Contains(t, err.Error(), "ollama")
	})

	t.Run("ollama unreachable", func(t *testing.T) {
		srv := ollamaServer(t, 4, http.StatusInternalServerError)
		_, err := CreateAndValidateEmbeddingService(context.Background(),
			file.EmbeddingConfig{Provider: "ollama", BaseURL: srv.URL, Dimensions: 4}, Google{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unreachable")
	})
}
