package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const robotsTxt = `
User-agent: *
Disallow: /admin/
Disallow: /private/
Allow: /private/public/
Crawl-delay: 2

User-agent: Googlebot
Disallow: /no-google/
`

func robotsFetcher(status int, body string, calls *atomic.Int32) Fetcher {
	return FetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
		calls.Add(1)
		return &Response{StatusCode: status, Body: []byte(body), FinalURL: rawURL}, nil
	})
}

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("Failed to parse %s: %v", s, err)
	}
	return u
}

func TestRobotsPolicy(t *testing.T) {
	var calls atomic.Int32
	policy := NewRobotsPolicy(robotsFetcher(http.StatusOK, robotsTxt, &calls), "scout-test")
	ctx := context.Background()

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"root allowed", "https://example.com/", true},
		{"admin disallowed", "https://example.com/admin/page", false},
		{"private disallowed", "https://example.com/private/data", false},
		{"more specific allow wins", "https://example.com/private/public/page", true},
		{"other agent's rule ignored", "https://example.com/no-google/x", true},
		{"query kept", "https://example.com/admin/?q=1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Allowed(ctx, mustURL(t, tt.url)); got != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, got)
			}
		})
	}

	if d := policy.CrawlDelay(ctx, mustURL(t, "https://example.com/")); d != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", d)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", n)
	}
}

func TestRobotsPolicyStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		allowed bool
	}{
		{"missing file allows all", http.StatusNotFound, true},
		{"server error disallows all", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			policy := NewRobotsPolicy(robotsFetcher(tt.status, "", &calls), "scout-test")
			if got := policy.Allowed(context.Background(), mustURL(t, "https://example.com/page")); got != tt.allowed {
				t.Errorf("Expected %v, got %v", tt.allowed, got)
			}
		})
	}
}

func TestRobotsPolicyFetchError(t *testing.T) {
	failing := FetcherFunc(func(ctx context.Context, rawURL string) (*Response, error) {
		return nil, errors.New("connection refused")
	})
	policy := NewRobotsPolicy(failing, "scout-test")
	if !policy.Allowed(context.Background(), mustURL(t, "https://example.com/admin/")) {
		t.Error("Expected unreachable robots.txt to allow everything")
	}
}

func TestRobotsPolicyConcurrentHosts(t *testing.T) {
	var calls atomic.Int32
	policy := NewRobotsPolicy(robotsFetcher(http.StatusOK, robotsTxt, &calls), "scout-test")

	hosts := []*url.URL{mustURL(t, "https://a.example.com/admin/"), mustURL(t, "https://b.example.com/admin/")}

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			policy.Allowed(context.Background(), hosts[i%2])
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 2 {
		t.Errorf("Expected one fetch per host, got %d", n)
	}
}
