// Package storage persists crawl runs and their records in SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pyscout/scout/internal/crawler"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	// ErrNoActiveRun is returned by SaveRecord before BeginRun
	ErrNoActiveRun = errors.New("no active crawl run")
	// ErrRunNotFound is returned for an unknown run id
	ErrRunNotFound = errors.New("crawl run not found")
)

// Page is a stored crawl record
type Page struct {
	Seq          int           `json:"seq"`
	URL          string        `json:"url"`
	FinalURL     string        `json:"final_url,omitempty"`
	Depth        int           `json:"depth"`
	StatusCode   int           `json:"status_code,omitempty"`
	ContentType  string        `json:"content_type,omitempty"`
	Size         int64         `json:"size"`
	Title        string        `json:"title,omitempty"`
	Description  string        `json:"description,omitempty"`
	Robots       string        `json:"robots,omitempty"`
	Canonical    string        `json:"canonical,omitempty"`
	ContentHash  string        `json:"content_hash,omitempty"`
	Text         string        `json:"text,omitempty"`
	Error        string        `json:"error,omitempty"`
	TTFB         time.Duration `json:"ttfb"`
	DownloadTime time.Duration `json:"download_time"`
	FetchedAt    time.Time     `json:"fetched_at"`
	Links        []string      `json:"links"`
}

// RunSummary describes a stored crawl run
type RunSummary struct {
	ID         string    `json:"id"`
	Seed       string    `json:"seed"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"` // Zero while running
	Pages      int       `json:"pages"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Links      int       `json:"links"`
	Bytes      int64     `json:"bytes"`
}

// SQLiteStorage stores crawl runs. It implements crawler.RecordSink for
// the run started by the most recent BeginRun.
type SQLiteStorage struct {
	db *sql.DB

	mu    sync.Mutex
	runID string
}

var _ crawler.RecordSink = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteStorage{db: db}
	if err := s.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// InitSchema applies pragmas and creates the tables
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginRun records a new run for seed and makes it the target of SaveRecord.
// settings, if not nil, is stored as JSON.
func (s *SQLiteStorage) BeginRun(seed string, settings any) (string, error) {
	var encoded sql.NullString
	if settings != nil {
		data, err := json.Marshal(settings)
		if err != nil {
			return "", fmt.Errorf("failed to encode run settings: %w", err)
		}
		encoded = sql.NullString{String: string(data), Valid: true}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO crawl_runs (id, seed, status, settings, started_at) VALUES (?, ?, ?, ?, ?)",
		id, seed, StatusRunning, encoded, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create crawl run: %w", err)
	}

	s.mu.Lock()
	s.runID = id
	s.mu.Unlock()
	return id, nil
}

// SaveRecord stores r and its links under the active run
func (s *SQLiteStorage) SaveRecord(r *crawler.Record) error {
	s.mu.Lock()
	runID := s.runID
	s.mu.Unlock()
	if runID == "" {
		return ErrNoActiveRun
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var errMsg sql.NullString
	if r.Err != nil {
		errMsg = sql.NullString{String: r.Err.Error(), Valid: true}
	}
	var fetchedAt sql.NullTime
	if !r.FetchedAt.IsZero() {
		fetchedAt = sql.NullTime{Time: r.FetchedAt, Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO pages (
			run_id, seq, url, final_url, depth, status_code, content_type,
			response_size_bytes, title, meta_description, meta_robots,
			canonical_url, content_hash, body_text, error_message,
			ttfb_ms, download_time_ms, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, url) DO UPDATE SET
			final_url = excluded.final_url,
			status_code = excluded.status_code,
			title = excluded.title,
			meta_description = excluded.meta_description,
			meta_robots = excluded.meta_robots,
			canonical_url = excluded.canonical_url,
			content_hash = excluded.content_hash,
			body_text = excluded.body_text,
			error_message = excluded.error_message,
			fetched_at = excluded.fetched_at
	`,
		runID, r.Seq, r.URL, r.FinalURL, r.Depth, r.StatusCode, r.ContentType,
		r.Size, r.Title, r.Description, r.Robots,
		r.Canonical, r.ContentHash, r.Text, errMsg,
		r.Metrics.TTFB.Milliseconds(), r.Metrics.DownloadTime.Milliseconds(), fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", r.URL, err)
	}

	if len(r.Links) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO links (run_id, source_url, target_url, position)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, link := range r.Links {
			if _, err := stmt.Exec(runID, r.URL, link, i); err != nil {
				return fmt.Errorf("failed to save link %s: %w", link, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record: %w", err)
	}
	return nil
}

// FinishRun closes runID with status and the crawler's final counters
func (s *SQLiteStorage) FinishRun(runID, status string, stats crawler.Stats) error {
	res, err := s.db.Exec(`
		UPDATE crawl_runs
		SET status = ?, finished_at = ?, fetched = ?, failed = ?, skipped = ?
		WHERE id = ?
	`, status, time.Now().UTC(), stats.Fetched, stats.Failed, stats.Skipped, runID)
	if err != nil {
		return fmt.Errorf("failed to finish crawl run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}

	s.mu.Lock()
	if s.runID == runID {
		s.runID = ""
	}
	s.mu.Unlock()
	return nil
}

// Records returns the pages of runID in discovery order
func (s *SQLiteStorage) Records(runID string) ([]Page, error) {
	rows, err := s.db.Query(`
		SELECT seq, url, COALESCE(final_url, ''), depth, COALESCE(status_code, 0),
			COALESCE(content_type, ''), COALESCE(response_size_bytes, 0),
			COALESCE(title, ''), COALESCE(meta_description, ''), COALESCE(meta_robots, ''),
			COALESCE(canonical_url, ''), COALESCE(content_hash, ''),
			COALESCE(body_text, ''), COALESCE(error_message, ''),
			COALESCE(ttfb_ms, 0), COALESCE(download_time_ms, 0), fetched_at
		FROM pages
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []Page
	index := make(map[string]int)
	for rows.Next() {
		var (
			p              Page
			ttfb, download int64
			fetchedAt      sql.NullTime
		)
		if err := rows.Scan(&p.Seq, &p.URL, &p.FinalURL, &p.Depth, &p.StatusCode,
			&p.ContentType, &p.Size, &p.Title, &p.Description, &p.Robots,
			&p.Canonical, &p.ContentHash, &p.Text, &p.Error,
			&ttfb, &download, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.TTFB = time.Duration(ttfb) * time.Millisecond
		p.DownloadTime = time.Duration(download) * time.Millisecond
		if fetchedAt.Valid {
			p.FetchedAt = fetchedAt.Time
		}
		index[p.URL] = len(pages)
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	linkRows, err := s.db.Query(
		"SELECT source_url, target_url FROM links WHERE run_id = ? ORDER BY source_url, position",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer func() { _ = linkRows.Close() }()

	for linkRows.Next() {
		var source, target string
		if err := linkRows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		if i, ok := index[source]; ok {
			pages[i].Links = append(pages[i].Links, target)
		}
	}
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	return pages, nil
}

// RunStats summarizes runID
func (s *SQLiteStorage) RunStats(runID string) (RunSummary, error) {
	var (
		sum        RunSummary
		finishedAt sql.NullTime
	)
	err := s.db.QueryRow(`
		SELECT r.id, r.seed, r.status, r.started_at, r.finished_at, r.skipped,
			(SELECT COUNT(*) FROM pages p WHERE p.run_id = r.id),
			(SELECT COUNT(*) FROM pages p WHERE p.run_id = r.id AND p.error_message IS NOT NULL),
			(SELECT COUNT(*) FROM links l WHERE l.run_id = r.id),
			(SELECT COALESCE(SUM(response_size_bytes), 0) FROM pages p WHERE p.run_id = r.id)
		FROM crawl_runs r
		WHERE r.id = ?
	`, runID).Scan(&sum.ID, &sum.Seed, &sum.Status, &sum.StartedAt, &finishedAt, &sum.Skipped,
		&sum.Pages, &sum.Failed, &sum.Links, &sum.Bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, ErrRunNotFound
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to get run stats: %w", err)
	}
	if finishedAt.Valid {
		sum.FinishedAt = finishedAt.Time
	}
	return sum, nil
}

// Runs lists stored run ids, newest first
func (s *SQLiteStorage) Runs() ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM crawl_runs ORDER BY started_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
