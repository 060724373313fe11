package store

const schema = `
CREATE TABLE IF NOT EXISTS media (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    size INTEGER NOT NULL,
    mod_time TEXT NOT NULL,
    media_type TEXT NOT NULL,
    is_download BOOLEAN NOT NULL DEFAULT 0,
    indexed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value BOOLEAN NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clean_history (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    deleted INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    bytes_freed INTEGER NOT NULL,
    types TEXT NOT NULL,
    dry_run BOOLEAN NOT NULL,
    manifest_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_media_type ON media(media_type);
CREATE INDEX IF NOT EXISTS idx_media_download ON media(is_download);
CREATE INDEX IF NOT EXISTS idx_history_started ON clean_history(started_at);
`
