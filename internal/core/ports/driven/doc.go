// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentLister: Enumerates documents in the corpus
//   - Extractor: Turns one document into normalised text
//   - Chunker: Splits text into deterministic overlapping chunks
//   - EmbeddingService: Generates vectors for batches of text
//   - VectorIndex: Upserts and deletes records in the vector index
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - ManifestStore: Per-document chunk counts. Without it, stale records
//     left behind by shrinking or deleted documents are not removed.
//   - RateLimiter: Paces batch calls. Without it, batches are issued as fast
//     as the configured concurrency allows.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
