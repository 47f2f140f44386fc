// Package normalisers provides the content extraction strategies and the
// dispatch table that selects one per content type.
//
// Each strategy fetches a document through a driven.ContentFetcher and turns
// it into UTF-8 text. The Registry wraps every failure in a
// domain.ExtractionError and applies the common text clean-up, so strategies
// only deal with their own format.
//
// Strategies are registered with RegisterDefaults at startup.
package normalisers
