package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/pyscout/scout/internal/config"
	"github.com/pyscout/scout/internal/crawler"
	"github.com/pyscout/scout/internal/storage"
)

func (a *app) newCrawlCmd() *cobra.Command {
	def := config.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site from a seed URL",
		Long: `Crawl pages under the seed URL's registrable domain, breadth first, with a
bounded pool of concurrent workers. Each fetched page yields one record with
its title, same-domain links and text. Records are stored in SQLite when
--database is set.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runCrawl,
	}

	f := cmd.Flags()
	f.IntP("max-pages", "n", def.MaxPages, "Stop after N records")
	f.IntP("concurrency", "c", def.Concurrency, "Number of concurrent workers")
	f.Int("max-depth", def.MaxDepth, "Deepest link hop followed (0=unlimited)")
	f.DurationP("delay", "r", def.RequestDelay, "Minimum delay between requests to one host")
	f.DurationP("timeout", "t", def.RequestTimeout, "HTTP request timeout")
	f.Int64("max-body-size", def.MaxBodySize, "Bytes read per response (0=unlimited)")
	f.StringP("user-agent", "u", def.UserAgent, "HTTP User-Agent header")
	f.Bool("respect-robots", def.RespectRobots, "Obey robots.txt rules and Crawl-delay")
	f.StringSlice("remove-tags", nil, "Elements removed before text extraction (e.g. script,style)")
	f.StringSlice("include-patterns", nil, "Regex patterns for URLs to include")
	f.StringSlice("exclude-patterns", nil, "Regex patterns for URLs to exclude")

	// HTTP Headers flags
	f.StringSliceP("header", "H", nil, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")

	// Authentication flags
	f.String("auth-type", "", "Authentication type: 'basic', 'bearer', or 'api-key'")
	f.String("auth-username", "", "Username for basic authentication")
	f.String("auth-password", "", "Password for basic authentication")
	f.String("auth-token", "", "Bearer token for authorization header")
	f.String("auth-header", "", "API key header name (e.g., X-API-Key)")
	f.String("auth-value", "", "API key header value")

	a.bindFlags(f, []flagBinding{
		{"max_pages", "max-pages"},
		{"concurrency", "concurrency"},
		{"max_depth", "max-depth"},
		{"request_delay", "delay"},
		{"request_timeout", "timeout"},
		{"max_body_size", "max-body-size"},
		{"user_agent", "user-agent"},
		{"respect_robots", "respect-robots"},
		{"tags_to_remove", "remove-tags"},
		{"include_patterns", "include-patterns"},
		{"exclude_patterns", "exclude-patterns"},
		{"headers", "header"},
		{"auth.type", "auth-type"},
		{"auth.basic.username", "auth-username"},
		{"auth.basic.password", "auth-password"},
		{"auth.bearer.token", "auth-token"},
		{"auth.api_key.header", "auth-header"},
		{"auth.api_key.value", "auth-value"},
	})
	return cmd
}

func (a *app) runCrawl(cmd *cobra.Command, args []string) error {
	if done, err := a.handleShowConfig(cmd); done {
		return err
	}
	cfg := a.cfg

	format := strings.ToLower(cfg.Format)
	switch format {
	case "json", "markdown", "text":
	default:
		return fmt.Errorf("%w: crawl output cannot be %q", config.ErrInvalidFormat, cfg.Format)
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	crawlCfg := crawler.Config{
		Seed:            args[0],
		MaxPages:        cfg.MaxPages,
		Concurrency:     cfg.Concurrency,
		MaxDepth:        cfg.MaxDepth,
		TagsToRemove:    cfg.TagsToRemove,
		RequestDelay:    cfg.RequestDelay,
		RespectRobots:   cfg.RespectRobots,
		IncludePatterns: cfg.IncludePatterns,
		ExcludePatterns: cfg.ExcludePatterns,
		UserAgent:       cfg.UserAgent,
	}

	var (
		opts  []crawler.Option
		store *storage.SQLiteStorage
		runID string
	)
	if cfg.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0750); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err = storage.NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, crawler.WithSink(store))
	}

	c, err := crawler.New(crawlCfg, fetcher, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	if store != nil {
		if runID, err = store.BeginRun(args[0], crawlCfg); err != nil {
			return err
		}
		slog.Info("Recording crawl", "run_id", runID, "database", cfg.DatabasePath)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, runErr := c.Run(ctx)
	stats := c.Stats()

	if store != nil {
		status := storage.StatusCompleted
		if runErr != nil {
			status = storage.StatusCancelled
		}
		if err := store.FinishRun(runID, status, stats); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	switch format {
	case "json":
		err = writeJSON(w, toCrawlOutputs(records), cfg.Indent)
	case "markdown":
		err = writeCrawlMarkdown(w, args[0], records)
	default:
		err = writeCrawlText(w, records)
	}
	if err != nil {
		return err
	}
	writeCrawlSummary(cmd.ErrOrStderr(), records, stats, runID)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// crawlOutput is the JSON form of a crawl record
type crawlOutput struct {
	Seq         int       `json:"seq"`
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url,omitempty"`
	Depth       int       `json:"depth"`
	StatusCode  int       `json:"status_code,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int       `json:"size"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Canonical   string    `json:"canonical,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Links       []string  `json:"links"`
	Text        string    `json:"text,omitempty"`
	Error       string    `json:"error,omitempty"`
	TTFBMs      int64     `json:"ttfb_ms"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func toCrawlOutputs(records []*crawler.Record) []crawlOutput {
	out := make([]crawlOutput, 0, len(records))
	for _, r := range records {
		o := crawlOutput{
			Seq:         r.Seq,
			URL:         r.URL,
			FinalURL:    r.FinalURL,
			Depth:       r.Depth,
			StatusCode:  r.StatusCode,
			ContentType: r.ContentType,
			Size:        r.Size,
			Title:       r.Title,
			Description: r.Description,
			Canonical:   r.Canonical,
			ContentHash: r.ContentHash,
			Links:       r.Links,
			Text:        r.Text,
			TTFBMs:      r.Metrics.TTFB.Milliseconds(),
			FetchedAt:   r.FetchedAt,
		}
		if o.Links == nil {
			o.Links = []string{}
		}
		if r.Err != nil {
			o.Error = r.Err.Error()
		}
		out = append(out, o)
	}
	return out
}

func writeCrawlText(w io.Writer, records []*crawler.Record) error {
	for _, r := range records {
		var err error
		if r.Failed() {
			_, err = fmt.Fprintf(w, "%d\t%s\tERROR %v\n", r.Depth, r.URL, r.Err)
		} else {
			_, err = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d links\t%s\n",
				r.Depth, r.URL, r.StatusCode, humanize.Bytes(uint64(r.Size)), len(r.Links), r.Title)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeCrawlMarkdown(w io.Writer, seed string, records []*crawler.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		status := strconv.Itoa(r.StatusCode)
		if r.Failed() && r.StatusCode == 0 {
			status = "error"
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Seq),
			r.URL,
			strconv.Itoa(r.Depth),
			status,
			humanize.Bytes(uint64(r.Size)),
			strconv.Itoa(len(r.Links)),
			r.Title,
		})
	}
	md := markdown.NewMarkdown(w)
	md.H1("Crawl of " + seed)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Depth", "Status", "Size", "Links", "Title"},
		Rows:   rows,
	})
	return md.Build()
}

func writeCrawlSummary(w io.Writer, records []*crawler.Record, stats crawler.Stats, runID string) {
	var total uint64
	for _, r := range records {
		total += uint64(r.Size)
	}
	fmt.Fprintf(w, "Crawled %s pages (%s failed, %s skipped), %s in %s\n",
		humanize.Comma(int64(stats.Records())),
		humanize.Comma(int64(stats.Failed)),
		humanize.Comma(int64(stats.Skipped)),
		humanize.Bytes(total),
		stats.Duration.Round(time.Millisecond))
	if runID != "" {
		fmt.Fprintf(w, "Run ID: %s\n", runID)
	}
}
