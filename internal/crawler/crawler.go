// Package crawler walks a site's link graph from a seed URL with a bounded
// pool of workers, producing one Record per fetched page.
package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var errNoResponse = errors.New("fetcher returned no response")

// Crawler runs one crawl. It is not reusable.
type Crawler struct {
	cfg     Config
	fetcher Fetcher
	sink    RecordSink
	seed    *url.URL
	filter  *urlFilter
	limiter *RateLimiter
	robots  *RobotsPolicy

	mu      sync.Mutex
	visited map[string]bool
	claimed int
	stats   Stats
}

// Option configures a Crawler
type Option func(*Crawler)

// WithSink delivers each record to s as it is produced
func WithSink(s RecordSink) Option {
	return func(c *Crawler) { c.sink = s }
}

// New creates a crawler for cfg that fetches through f
func New(cfg Config, f Fetcher, opts ...Option) (*Crawler, error) {
	cfg = cfg.withDefaults()

	seed, err := Canonicalize(cfg.Seed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if (seed.Scheme != "http" && seed.Scheme != "https") || seed.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidSeed, cfg.Seed)
	}
	filter, err := newURLFilter(seed, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	c := &Crawler{
		cfg:     cfg,
		fetcher: f,
		seed:    seed,
		filter:  filter,
		limiter: NewRateLimiter(cfg.RequestDelay),
		visited: make(map[string]bool),
	}
	if cfg.RespectRobots {
		c.robots = NewRobotsPolicy(f, cfg.UserAgent)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// task is one frontier entry
type task struct {
	url   string
	depth int
	seq   int
}

// outcome is what a worker reports for a task; record is nil when the
// task was dropped without fetching
type outcome struct {
	task   task
	record *Record
}

// Run crawls until the frontier is empty or MaxPages records exist and all
// in-flight fetches have finished. When ctx ends, Run stops dispatching and
// returns the records produced so far along with ctx's error. Records are
// ordered by discovery.
func (c *Crawler) Run(ctx context.Context) ([]*Record, error) {
	c.mu.Lock()
	c.stats = Stats{StartTime: time.Now(), Queued: 1}
	c.mu.Unlock()

	slog.Info("Starting crawl", "seed", c.seed.String(), "max_pages", c.cfg.MaxPages, "concurrency", c.cfg.Concurrency)

	work := make(chan task)
	results := make(chan outcome)

	g, gctx := errgroup.WithContext(ctx)
	for i := range c.cfg.Concurrency {
		g.Go(func() error {
			c.worker(gctx, i, work, results)
			return nil
		})
	}

	records := c.dispatch(ctx, task{url: c.seed.String()}, work, results)
	close(work)
	_ = g.Wait()

	slices.SortFunc(records, func(a, b *Record) int { return a.Seq - b.Seq })

	stats := c.Stats()
	slog.Info("Crawl finished", "records", stats.Records(), "failed", stats.Failed, "skipped", stats.Skipped, "duration", stats.Duration)
	return records, ctx.Err()
}

// dispatch owns the frontier. It hands tasks to workers, enqueues the
// links of each record and collects records until nothing is left.
func (c *Crawler) dispatch(ctx context.Context, seed task, work chan<- task, results <-chan outcome) []*Record {
	queue := []task{seed}
	queued := map[string]bool{seed.url: true}
	nextSeq := 1
	inflight := 0
	var records []*Record

	for len(queue) > 0 || inflight > 0 {
		if ctx.Err() != nil {
			slog.Info("Crawl cancelled", "records", len(records))
			return records
		}

		var out chan<- task
		var next task
		if len(queue) > 0 {
			out = work
			next = queue[0]
		}

		select {
		case <-ctx.Done():
		case out <- next:
			queue = queue[1:]
			inflight++
		case res := <-results:
			inflight--
			if res.record == nil {
				continue
			}
			records = append(records, res.record)
			if c.sink != nil {
				if err := c.sink.SaveRecord(res.record); err != nil {
					slog.Error("Failed to save record", "url", res.record.URL, "error", err)
				}
			}
			for _, link := range res.record.Links {
				if t, ok := c.admit(link, res.task.depth+1, queued, nextSeq); ok {
					queued[t.url] = true
					queue = append(queue, t)
					nextSeq++
				}
			}
		}
	}
	return records
}

// admit decides whether a discovered link enters the frontier
func (c *Crawler) admit(link string, depth int, queued map[string]bool, seq int) (task, bool) {
	if queued[link] {
		return task{}, false
	}
	if c.cfg.MaxDepth > 0 && depth > c.cfg.MaxDepth {
		return task{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed >= c.cfg.MaxPages {
		return task{}, false
	}

	u, err := url.Parse(link)
	if err != nil {
		c.stats.Skipped++
		return task{}, false
	}
	if ok, reason := c.filter.allow(u); !ok {
		slog.Debug("Skipping URL", "url", link, "reason", reason)
		c.stats.Skipped++
		return task{}, false
	}
	c.stats.Queued++
	return task{url: link, depth: depth, seq: seq}, true
}

// claim marks rawURL visited and reserves a record slot. It fails when rawURL was
// already visited or the page cap is reached.
func (c *Crawler) claim(rawURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visited[rawURL] || c.claimed >= c.cfg.MaxPages {
		return false
	}
	c.visited[rawURL] = true
	c.claimed++
	return true
}

func (c *Crawler) worker(ctx context.Context, id int, work <-chan task, results chan<- outcome) {
	slog.Debug("Worker started", "worker_id", id)
	defer slog.Debug("Worker stopped", "worker_id", id)

	for t := range work {
		res := outcome{task: t, record: c.process(ctx, id, t)}
		select {
		case results <- res:
		case <-ctx.Done():
			return
		}
	}
}

// process fetches one task. A nil record means the task was dropped.
func (c *Crawler) process(ctx context.Context, id int, t task) *Record {
	u, err := url.Parse(t.url)
	if err != nil {
		c.skip()
		return nil
	}

	if c.robots != nil {
		if !c.robots.Allowed(ctx, u) {
			slog.Info("URL disallowed by robots.txt", "worker_id", id, "url", t.url)
			c.skip()
			return nil
		}
		if d := c.robots.CrawlDelay(ctx, u); d > c.cfg.RequestDelay {
			c.limiter.SetHostDelay(u.Host, d)
		}
	}

	if !c.claim(t.url) {
		return nil
	}

	r := &Record{URL: t.url, Depth: t.depth, Seq: t.seq}
	if err := c.limiter.Wait(ctx, t.url); err != nil {
		r.Err = &FetchError{URL: t.url, Err: err}
		c.finish(r)
		return r
	}

	resp, err := c.fetcher.Fetch(ctx, t.url)
	r.FetchedAt = time.Now().UTC()
	switch {
	case err != nil:
		r.Err = &FetchError{URL: t.url, Err: err}
	case resp == nil:
		r.Err = &FetchError{URL: t.url, Err: errNoResponse}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		r.StatusCode = resp.StatusCode
		r.FinalURL = resp.FinalURL
		r.Err = &FetchError{URL: t.url, StatusCode: resp.StatusCode}
	default:
		r.StatusCode = resp.StatusCode
		r.FinalURL = resp.FinalURL
		r.ContentType = resp.ContentType
		r.Size = len(resp.Body)
		r.Metrics = resp.Metrics
		sum := sha256.Sum256(resp.Body)
		r.ContentHash = hex.EncodeToString(sum[:])
		processPage(r, resp, c.cfg.TagsToRemove, c.filter)
	}

	if r.Err != nil {
		slog.Warn("Worker failed to fetch URL", "worker_id", id, "url", t.url, "error", r.Err)
	} else {
		slog.Info("Worker processed URL", "worker_id", id, "url", t.url, "status", r.StatusCode, "links", len(r.Links))
	}
	c.finish(r)
	return r
}

func (c *Crawler) skip() {
	c.mu.Lock()
	c.stats.Skipped++
	c.mu.Unlock()
}

func (c *Crawler) finish(r *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.Err != nil {
		c.stats.Failed++
	} else {
		c.stats.Fetched++
	}
}

// Stats returns a snapshot of the crawl's counters
func (c *Crawler) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	if !s.StartTime.IsZero() {
		s.Duration = time.Since(s.StartTime)
	}
	return s
}

// Crawl is New followed by Run
func Crawl(ctx context.Context, cfg Config, f Fetcher, opts ...Option) ([]*Record, error) {
	c, err := New(cfg, f, opts...)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx)
}
