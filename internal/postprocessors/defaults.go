package postprocessors

import (
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/postprocessors/chunker"
)

// Built-in strategy names.
const (
	StrategyRecursive = "recursive"
	StrategyFixed     = "fixed"
)

// RegisterDefaults registers the built-in strategies.
func RegisterDefaults(r *Registry) {
	r.Register(StrategyRecursive, buildRecursive)
	r.Register(StrategyFixed, buildFixed)
}

// Default returns a registry holding the built-in strategies.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// buildRecursive splits at the coarsest natural boundary that fits.
func buildRecursive(opts Options) (driven.Chunker, error) {
	return build(opts, chunker.WithSeparators(chunker.DefaultSeparators...))
}

// buildFixed cuts fixed windows regardless of content.
func buildFixed(opts Options) (driven.Chunker, error) {
	return build(opts, chunker.WithHardCuts())
}

func build(opts Options, extra ...chunker.Option) (driven.Chunker, error) {
	measure, err := chunker.MeasureFor(opts.Unit, opts.Encoding)
	if err != nil {
		return nil, err
	}
	all := append([]chunker.Option{
		chunker.WithChunkSize(opts.Size),
		chunker.WithOverlap(opts.Overlap),
		chunker.WithMeasure(measure),
	}, extra...)
	return chunker.New(all...), nil
}
