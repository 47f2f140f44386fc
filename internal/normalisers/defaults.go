package normalisers

import (
	"github.com/seconds-0/slack-support-bot/internal/core/ports/driven"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/docx"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/gdocs"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/html"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/markdown"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/pdf"
	"github.com/seconds-0/slack-support-bot/internal/normalisers/plaintext"
)

// RegisterDefaults registers all built-in strategies, each reading content
// through fetcher.
func RegisterDefaults(r *Registry, fetcher driven.ContentFetcher) {
	r.Register(gdocs.New(fetcher))
	r.Register(plaintext.New(fetcher))
	r.Register(markdown.New(fetcher))
	r.Register(html.New(fetcher))
	r.Register(docx.New(fetcher))
	r.Register(pdf.New(fetcher))
}

// Default returns a registry with every built-in strategy.
func Default(fetcher driven.ContentFetcher) *Registry {
	r := NewRegistry()
	RegisterDefaults(r, fetcher)
	return r
}
