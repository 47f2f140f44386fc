// Package postprocessors builds the chunking strategy named in configuration.
package postprocessors

import (
	"fmt"
	"slices"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
)

// Options are the chunking parameters shared by every strategy.
type Options struct {
	Size     int
	Overlap  int
	Unit     string
	Encoding string
}

// Validate checks the size and overlap bounds.
func (o Options) Validate() error {
	if o.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, o.Size)
	}
	if o.Overlap < 0 || o.Overlap >= o.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidInput, o.Size, o.Overlap)
	}
	return nil
}

// BuilderFunc creates a Chunker from the shared options.
type BuilderFunc func(opts Options) (driven.Chunker, error)

// Registry maps strategy names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a builder. A later registration under the same name wins.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build validates opts and creates the named chunker.
func (r *Registry) Build(name string, opts Options) (driven.Chunker, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown chunking strategy: %s", name)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return builder(opts)
}

// Has returns true if a strategy with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
