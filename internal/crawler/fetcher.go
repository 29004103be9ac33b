package crawler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// Fetcher retrieves one URL. Non-success statuses are returned as a
// Response; only transport failures produce an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, url string) (*Response, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Response, error) {
	return f(ctx, url)
}

// Metrics holds request timings
type Metrics struct {
	TTFB         time.Duration // Time to first byte
	DownloadTime time.Duration // Request start to body read
	DNSLookup    time.Duration
	TCPConnect   time.Duration
	TLSHandshake time.Duration
}

// Response is a fetched body and its metadata
type Response struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	ContentType string
	FinalURL    string // After following redirects
	Metrics     Metrics
}

// DefaultMaxBodySize caps how much of a response body is read
const DefaultMaxBodySize = 10 << 20

var errTooManyRedirects = errors.New("too many redirects")

// HTTPFetcher is the net/http Fetcher
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	auth        func(*http.Request)
	headers     map[string]string
}

// NewHTTPFetcher creates a fetcher with the given User-Agent and per-request timeout
func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errTooManyRedirects
				}
				return nil
			},
		},
		userAgent:   userAgent,
		maxBodySize: DefaultMaxBodySize,
		headers:     make(map[string]string),
	}
}

// SetBasicAuth sends HTTP basic credentials on every request
func (f *HTTPFetcher) SetBasicAuth(username, password string) {
	f.auth = func(req *http.Request) {
		req.SetBasicAuth(username, password)
	}
}

// SetBearerAuth sends an Authorization bearer token on every request
func (f *HTTPFetcher) SetBearerAuth(token string) {
	f.auth = func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// SetAPIKeyAuth sends value in the named header on every request
func (f *HTTPFetcher) SetAPIKeyAuth(header, value string) {
	f.auth = func(req *http.Request) {
		req.Header.Set(header, value)
	}
}

// SetHeader adds a header sent with every request
func (f *HTTPFetcher) SetHeader(name, value string) {
	f.headers[name] = value
}

// SetMaxBodySize limits the bytes read per response; n <= 0 removes the limit
func (f *HTTPFetcher) SetMaxBodySize(n int64) {
	f.maxBodySize = n
}

// Fetch performs a GET and records DNS, connect, TLS, TTFB and download timings
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if f.auth != nil {
		f.auth(req)
	}
	for name, value := range f.headers {
		req.Header.Set(name, value)
	}

	var metrics Metrics
	var dnsStart, connectStart, tlsStart, firstByte time.Time
	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone: func(httptrace.DNSDoneInfo) {
			metrics.DNSLookup = time.Since(dnsStart)
		},
		ConnectStart: func(string, string) { connectStart = time.Now() },
		ConnectDone: func(string, string, error) {
			metrics.TCPConnect = time.Since(connectStart)
		},
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			metrics.TLSHandshake = time.Since(tlsStart)
		},
		GotFirstResponseByte: func() { firstByte = time.Now() },
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !firstByte.IsZero() {
		metrics.TTFB = firstByte.Sub(start)
	}

	var body io.Reader = resp.Body
	if f.maxBodySize > 0 {
		body = io.LimitReader(resp.Body, f.maxBodySize)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	metrics.DownloadTime = time.Since(start)

	return &Response{
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		Metrics:     metrics,
	}, nil
}

// Close releases idle connections
func (f *HTTPFetcher) Close() {
	f.client.CloseIdleConnections()
}
