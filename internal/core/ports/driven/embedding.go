package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorIndex which stores vectors.
// EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations include:
//   - Vertex AI text embedding models (text-embedding-005, gecko)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - A deterministic hashing embedder for offline runs
type EmbeddingService interface {
	// EmbedBatch generates one embedding per input text.
	// Position i of the result corresponds to position i of texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	// This is determined by the model and must match VectorIndex configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
