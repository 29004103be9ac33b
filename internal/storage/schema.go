package storage

const schemaSQL = `
-- One row per crawl invocation
CREATE TABLE IF NOT EXISTS crawl_runs (
    id TEXT PRIMARY KEY NOT NULL,
    seed TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'completed', 'cancelled')),
    settings TEXT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    fetched INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0
);

-- Pages holds one row per crawl record, failed fetches included
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    url TEXT NOT NULL,
    final_url TEXT,
    depth INTEGER NOT NULL,
    status_code INTEGER,
    content_type TEXT,
    response_size_bytes INTEGER,
    title TEXT,
    meta_description TEXT,
    meta_robots TEXT,
    canonical_url TEXT,
    content_hash TEXT,
    body_text TEXT,
    error_message TEXT,
    ttfb_ms INTEGER,
    download_time_ms INTEGER,
    fetched_at DATETIME,
    UNIQUE(run_id, url)
);

CREATE INDEX IF NOT EXISTS idx_pages_run_seq ON pages(run_id, seq);
CREATE INDEX IF NOT EXISTS idx_pages_status_code ON pages(status_code);

-- Outbound links in page order
CREATE TABLE IF NOT EXISTS links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
    source_url TEXT NOT NULL,
    target_url TEXT NOT NULL,
    position INTEGER NOT NULL,
    UNIQUE(run_id, source_url, target_url)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(run_id, source_url);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(run_id, target_url);
`
