package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces requests to the same host by a fixed delay
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	delay    time.Duration
}

// NewRateLimiter creates a limiter; a delay <= 0 never waits
func NewRateLimiter(delay time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    delay,
	}
}

// Wait blocks until a request to rawURL's host may proceed or ctx ends
func (r *RateLimiter) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL for rate limiting: %w", err)
	}
	return r.limiter(u.Host).Wait(ctx)
}

// SetHostDelay overrides the delay for one host, e.g. from a robots Crawl-delay.
// An existing limiter keeps its token state, so repeated calls do not reset pacing.
func (r *RateLimiter) SetHostDelay(host string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[host]
	if !ok {
		r.limiters[host] = newLimiter(delay)
		return
	}
	if limit := limitFor(delay); l.Limit() != limit {
		l.SetLimit(limit)
	}
}

func (r *RateLimiter) limiter(host string) *rate.Limiter {
	r.mu.RLock()
	l, ok := r.limiters[host]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[host]; ok {
		return l
	}
	l = newLimiter(r.delay)
	r.limiters[host] = l
	return l
}

func newLimiter(delay time.Duration) *rate.Limiter {
	return rate.NewLimiter(limitFor(delay), 1)
}

func limitFor(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}
