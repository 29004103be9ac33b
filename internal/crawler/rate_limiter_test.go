package crawler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.Wait(ctx, "https://example.com/page1"); err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://example.com/page2"); err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Same host was not delayed, elapsed %v", elapsed)
	}

	start = time.Now()
	if err := limiter.Wait(ctx, "https://other.com/page1"); err != nil {
		t.Fatalf("Other host request failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Other host was delayed, elapsed %v", elapsed)
	}
}

func TestRateLimiterZeroDelay(t *testing.T) {
	limiter := NewRateLimiter(0)
	start := time.Now()
	for range 50 {
		if err := limiter.Wait(context.Background(), "https://example.com/"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Zero delay should not wait, elapsed %v", elapsed)
	}
}

func TestRateLimiterHostDelay(t *testing.T) {
	limiter := NewRateLimiter(0)
	limiter.SetHostDelay("example.com", 150*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	_ = limiter.Wait(ctx, "https://example.com/a")
	_ = limiter.Wait(ctx, "https://example.com/b")
	if elapsed := time.Since(start); elapsed < 140*time.Millisecond {
		t.Errorf("Host delay not applied, elapsed %v", elapsed)
	}
}

func TestRateLimiterHostDelayKeepsPacing(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for _, path := range []string{"/a", "/b", "/c"} {
		limiter.SetHostDelay("example.com", 100*time.Millisecond)
		if err := limiter.Wait(ctx, "https://example.com"+path); err != nil {
			t.Fatalf("Wait(%s) failed: %v", path, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 190*time.Millisecond {
		t.Errorf("Repeated SetHostDelay reset the limiter, elapsed %v", elapsed)
	}
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(500 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	if err := limiter.Wait(ctx, "https://example.com/page1"); err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	cancel()

	if err := limiter.Wait(ctx, "https://example.com/page2"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRateLimiterInvalidURL(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)
	if err := limiter.Wait(context.Background(), "http://[::1]:namedport"); err == nil {
		t.Error("Expected error for invalid URL")
	}
}
