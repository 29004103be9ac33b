package crawler

import (
	"errors"
	"fmt"
	"time"

	"github.com/pyscout/scout/internal/dom"
)

// Defaults applied to zero Config fields
const (
	DefaultMaxPages    = 50
	DefaultConcurrency = 4
	DefaultUserAgent   = "scout/1.0"
)

// Config controls a crawl run
type Config struct {
	Seed            string        // Starting URL, depth 0
	MaxPages        int           // Records produced before the frontier closes
	Concurrency     int           // Concurrent fetch workers
	MaxDepth        int           // Deepest hop followed (0=unlimited)
	TagsToRemove    []string      // Elements pruned before text extraction
	RequestDelay    time.Duration // Minimum spacing of requests per host
	RespectRobots   bool          // Consult robots.txt before fetching
	IncludePatterns []string      // Regex patterns a followed URL must match
	ExcludePatterns []string      // Regex patterns a followed URL must not match
	UserAgent       string        // Agent matched against robots.txt groups
}

func (c Config) withDefaults() Config {
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// Record is the outcome of fetching one URL
type Record struct {
	Seq         int    // Discovery order; the seed is 0
	URL         string // Canonical URL that was requested
	FinalURL    string // URL after redirects
	Depth       int    // Hops from the seed
	StatusCode  int
	ContentType string
	Size        int
	Err         error // *FetchError when the fetch failed
	Title       string
	Description string   // <meta name="description">
	Robots      string   // <meta name="robots">
	Canonical   string   // Absolute <link rel="canonical"> target
	ContentHash string   // Hex SHA-256 of the body
	Links       []string // Canonical same-domain outbound links
	Text        string
	Document    *dom.Document
	Metrics     Metrics
	FetchedAt   time.Time
}

// Failed reports whether the record carries a fetch error
func (r *Record) Failed() bool {
	return r.Err != nil
}

// ErrFetch is matched by every *FetchError
var ErrFetch = errors.New("fetch failed")

// ErrInvalidSeed reports a seed URL that cannot start a crawl
var ErrInvalidSeed = errors.New("invalid seed URL")

// FetchError describes a network failure, timeout or non-success status
type FetchError struct {
	URL        string
	StatusCode int   // Zero for transport failures
	Err        error // Underlying cause, nil for status failures
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// RecordSink receives records as they are produced. Calls are serialized.
type RecordSink interface {
	SaveRecord(r *Record) error
}

// Stats summarizes a crawl in progress or finished
type Stats struct {
	Fetched   int // Records with a successful fetch
	Failed    int // Records carrying a FetchError
	Skipped   int // URLs rejected without fetching
	Queued    int // URLs accepted into the frontier
	StartTime time.Time
	Duration  time.Duration
}

// Records returns the number of records produced
func (s Stats) Records() int {
	return s.Fetched + s.Failed
}
