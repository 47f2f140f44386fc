// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// A sync pass runs as a sequence of stages:
//
//	Listing -> PerDocumentProcessing -> Embedding -> Upserting -> Reconciling
//
// Each stage hands an immutable slice to the next. Per-document and
// per-batch failures are recorded in the run summary; only a failed listing
// or a cancelled context ends the run in the Failed state.
package services
