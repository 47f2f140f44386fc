// Package connectors provides the corpora documents are listed and fetched
// from. Each connector implements driven.Corpus for one source type
// (Google Drive, a local directory).
package connectors
