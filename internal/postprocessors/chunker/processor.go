// Package chunker splits normalised document text into overlapping chunks.
//
// Splitting is recursive: the text is cut at the coarsest natural boundary
// (paragraph, line, sentence, word) that yields pieces within the target size,
// adjacent pieces are merged back up to the target size with the configured
// overlap, and a hard cut is the last resort. The output is a pure function of
// the text and the parameters.
package chunker

import (
	"strings"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of units per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping units.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order, coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

// Processor splits text into chunks.
type Processor struct {
	chunkSize  int
	overlap    int
	measure    Measure
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in measure units.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in measure units.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMeasure sets the unit chunk size and overlap are expressed in.
func WithMeasure(m Measure) Option {
	return func(p *Processor) {
		if m != nil {
			p.measure = m
		}
	}
}

// WithSeparators replaces the boundary list.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		if len(seps) > 0 {
			p.separators = seps
		}
	}
}

// WithHardCuts disables boundary splitting: text is cut into fixed windows.
func WithHardCuts() Option {
	return func(p *Processor) {
		p.separators = nil
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		measure:    Characters(),
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the effective chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the effective overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Unit returns the measure unit.
func (p *Processor) Unit() string { return p.measure.Unit() }

// Chunk splits text into ordered chunks stamped with documentID and ordinal.
// Chunks are whitespace-trimmed and blank pieces are dropped before ordinals
// are assigned. Empty text yields no chunks.
func (p *Processor) Chunk(documentID, text string) ([]domain.TextChunk, error) {
	if documentID == "" {
		return nil, &domain.ChunkingError{Err: domain.ErrInvalidInput}
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	pieces := p.split(text, p.separators)

	chunks := make([]domain.TextChunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, domain.TextChunk{
			DocumentID: documentID,
			Ordinal:    len(chunks),
			Text:       piece,
		})
	}
	return chunks, nil
}

// split returns text as pieces no larger than chunkSize.
func (p *Processor) split(text string, seps []string) []string {
	if p.measure.Len(text) <= p.chunkSize {
		return []string{text}
	}
	for i, sep := range seps {
		if strings.Contains(text, sep) {
			return p.splitOn(text, sep, seps[i+1:])
		}
	}
	return p.measure.Cut(text, p.chunkSize, p.overlap)
}

// splitOn cuts text at sep, merges runs of small parts and recurses into
// parts that are still too large using the finer separators.
func (p *Processor) splitOn(text, sep string, finer []string) []string {
	var out, pending []string
	for _, part := range splitKeep(text, sep) {
		if p.measure.Len(part) <= p.chunkSize {
			pending = append(pending, part)
			continue
		}
		if len(pending) > 0 {
			out = append(out, p.merge(pending)...)
			pending = nil
		}
		out = append(out, p.split(part, finer)...)
	}
	if len(pending) > 0 {
		out = append(out, p.merge(pending)...)
	}
	return out
}

// merge packs consecutive parts into windows of at most chunkSize, carrying
// up to overlap units of trailing parts into the next window.
func (p *Processor) merge(parts []string) []string {
	var (
		out     []string
		window  []string
		lengths []int
		total   int
	)
	for _, part := range parts {
		n := p.measure.Len(part)
		if total+n > p.chunkSize && len(window) > 0 {
			out = append(out, strings.Join(window, ""))
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= lengths[0]
				window = window[1:]
				lengths = lengths[1:]
			}
		}
		window = append(window, part)
		lengths = append(lengths, n)
		total += n
	}
	if len(window) > 0 {
		out = append(out, strings.Join(window, ""))
	}
	return out
}

// splitKeep splits text after each occurrence of sep, keeping the separator
// on the preceding part.
func splitKeep(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}
