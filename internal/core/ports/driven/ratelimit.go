package driven

import (
	"context"
	"time"
)

// RateLimiter paces calls to an external provider.
type RateLimiter interface {
	// Wait blocks until a call may be made or ctx is done.
	Wait(ctx context.Context) error
}

// Throttler is implemented by limiters that can pause all callers after a
// provider reports throttling.
type Throttler interface {
	// Backoff holds further calls for d. A non-positive d uses the
	// limiter's default window.
	Backoff(d time.Duration)
}
