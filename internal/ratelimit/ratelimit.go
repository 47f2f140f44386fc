// Package ratelimit paces calls to external providers.
//
// Each pipeline stage that talks to a rate-limited API (corpus listing and
// content, embedding, index writes) gets its own token bucket. A provider 429
// opens a back-off window during which Wait blocks for every caller.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/seconds-0/slack-support-bot/internal/logger"
)

// Service identifies a provider call class for default limits.
type Service string

const (
	// ServiceCorpus covers corpus listing, export and download calls.
	ServiceCorpus Service = "corpus"
	// ServiceEmbedding covers embedding batch calls.
	ServiceEmbedding Service = "embedding"
	// ServiceIndex covers vector index write calls.
	ServiceIndex Service = "index"
)

// Config holds rate limiting configuration for a service.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultLimits provides conservative defaults for each service.
// These are well below published provider quotas.
var DefaultLimits = map[Service]Config{
	ServiceCorpus:    {RequestsPerSecond: 8.0, BurstSize: 10}, // Drive allows 10/sec/user
	ServiceEmbedding: {RequestsPerSecond: 5.0, BurstSize: 5},
	ServiceIndex:     {RequestsPerSecond: 5.0, BurstSize: 5},
}

// DefaultRetryAfter is the back-off applied when a 429 carries no hint.
const DefaultRetryAfter = 30 * time.Second

// Limiter is a token bucket with an optional back-off window.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	service Service
}

// New creates a limiter with the default limits for service.
func New(service Service) *Limiter {
	cfg, ok := DefaultLimits[service]
	if !ok {
		cfg = Config{RequestsPerSecond: 5.0, BurstSize: 5}
	}
	l := NewWithConfig(cfg)
	l.service = service
	return l
}

// ForService creates a limiter for service from configured limits. A zero
// rate uses the service defaults and a negative rate disables pacing.
func ForService(service Service, cfg Config) *Limiter {
	if cfg.RequestsPerSecond == 0 {
		return New(service)
	}
	l := NewWithConfig(cfg)
	l.service = service
	return l
}

// NewWithConfig creates a limiter with custom configuration.
// A non-positive rate disables pacing.
func NewWithConfig(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any back-off window set by Backoff.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Backoff opens a back-off window after a provider rate-limit response.
// A non-positive duration uses DefaultRetryAfter.
func (l *Limiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = DefaultRetryAfter
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if next := time.Now().Add(d); next.After(l.retryAt) {
		l.retryAt = next
		logger.Warn("provider rate limited", "service", string(l.service), "retry_in", d)
	}
}
