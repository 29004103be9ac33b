package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// RobotsPolicy answers robots.txt questions for a user agent, fetching
// each host's file once through the crawl's Fetcher
type RobotsPolicy struct {
	fetcher   Fetcher
	userAgent string

	mu     sync.RWMutex
	groups map[string]*robotstxt.Group
	flight singleflight.Group
}

// NewRobotsPolicy creates a policy that fetches robots.txt through f
func NewRobotsPolicy(f Fetcher, userAgent string) *RobotsPolicy {
	return &RobotsPolicy{
		fetcher:   f,
		userAgent: userAgent,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether u may be fetched. An unreachable robots.txt allows everything.
func (p *RobotsPolicy) Allowed(ctx context.Context, u *url.URL) bool {
	g := p.group(ctx, u)
	if g == nil {
		return true
	}
	return g.Test(u.RequestURI())
}

// CrawlDelay returns the Crawl-delay declared for u's host, or zero
func (p *RobotsPolicy) CrawlDelay(ctx context.Context, u *url.URL) time.Duration {
	if g := p.group(ctx, u); g != nil {
		return g.CrawlDelay
	}
	return 0
}

func (p *RobotsPolicy) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	p.mu.RLock()
	g, ok := p.groups[key]
	p.mu.RUnlock()
	if ok {
		return g
	}

	v, _, _ := p.flight.Do(key, func() (any, error) {
		p.mu.RLock()
		g, ok := p.groups[key]
		p.mu.RUnlock()
		if ok {
			return g, nil
		}
		g = p.load(ctx, key)
		p.mu.Lock()
		p.groups[key] = g
		p.mu.Unlock()
		return g, nil
	})
	return v.(*robotstxt.Group)
}

func (p *RobotsPolicy) load(ctx context.Context, origin string) *robotstxt.Group {
	resp, err := p.fetcher.Fetch(ctx, origin+"/robots.txt")
	if err == nil && resp == nil {
		err = errNoResponse
	}
	if err != nil {
		slog.Warn("Failed to fetch robots.txt", "origin", origin, "error", err)
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		slog.Warn("Failed to parse robots.txt", "origin", origin, "error", err)
		return nil
	}
	return data.FindGroup(p.userAgent)
}
