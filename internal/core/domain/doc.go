// Package domain defines the core entities of the document sync pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceDocument: A reference to an item in the external corpus
//   - TextChunk: An overlapping window of a document's normalised text
//   - EmbeddingVector: The vector produced for one chunk
//   - IndexRecord: The unit persisted in the vector index
//   - RunSummary: The outcome of one synchronisation run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
