package domain

import (
	"strconv"
	"strings"
	"time"
)

// ChunkIDSeparator joins a document id and a chunk ordinal.
// Ordinals are decimal so the last separator always splits the pair.
const ChunkIDSeparator = "_"

// SourceDocument references an item in the external corpus.
// It is an immutable snapshot for the duration of a run.
type SourceDocument struct {
	// ID is the corpus-assigned identifier.
	ID string

	// Name is the human-readable file name.
	Name string

	// ContentType is the MIME type reported by the corpus.
	ContentType string

	// Size is the reported byte size (0 for native documents that have none).
	Size int64

	// WebLink is a browser URL for the document, when the corpus has one.
	WebLink string

	// ModifiedAt is the last modification time reported by the corpus.
	ModifiedAt time.Time
}

// TextChunk is a contiguous window of a document's normalised text.
// Chunks only exist within a run.
type TextChunk struct {
	// DocumentID links to the SourceDocument that produced this chunk.
	DocumentID string

	// Ordinal is the zero-based position among the document's chunks.
	Ordinal int

	// Text is the chunk content.
	Text string
}

// ID returns the deterministic chunk id.
func (c TextChunk) ID() string {
	return ChunkID(c.DocumentID, c.Ordinal)
}

// ChunkID derives the stable identifier for a (documentId, ordinal) pair.
// Identical inputs always yield the identical id, across runs.
func ChunkID(documentID string, ordinal int) string {
	return documentID + ChunkIDSeparator + strconv.Itoa(ordinal)
}

// ParseChunkID splits a chunk id back into its document id and ordinal.
func ParseChunkID(id string) (documentID string, ordinal int, ok bool) {
	i := strings.LastIndex(id, ChunkIDSeparator)
	if i <= 0 || i == len(id)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:i], n, true
}

// EmbeddingVector is the vector produced for one chunk.
type EmbeddingVector struct {
	// ChunkID identifies the embedded chunk.
	ChunkID string

	// DocumentID links back to the source document.
	DocumentID string

	// Vector has the embedding model's declared dimension.
	Vector []float32
}

// IndexRecord is the unit of persistence in the vector index.
// It persists until overwritten or deleted by a later run.
type IndexRecord struct {
	// DatapointID equals the chunk id.
	DatapointID string

	// FeatureVector is the embedding.
	FeatureVector []float32
}

// Record converts an embedding into its index record.
func (e EmbeddingVector) Record() IndexRecord {
	return IndexRecord{
		DatapointID:   e.ChunkID,
		FeatureVector: e.Vector,
	}
}
