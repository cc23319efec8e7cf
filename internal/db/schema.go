package db

// Schema contains all SQL statements for the note store database.
// Timestamps are unix milliseconds to match the wire format of updated_at.
const Schema = `
-- Notes table: block content is stored as its JSON wire form.
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    doc_id TEXT NOT NULL UNIQUE,
    owner_id TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '[]',
    preview TEXT NOT NULL DEFAULT 'No preview available.',
    category TEXT,
    tags TEXT NOT NULL DEFAULT '[]',
    is_archived INTEGER NOT NULL DEFAULT 0,
    is_starred INTEGER NOT NULL DEFAULT 0,
    source_key TEXT,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner_id);
CREATE INDEX IF NOT EXISTS idx_notes_owner_category ON notes(owner_id, category);

-- Categories table: names are unique per owner, case-insensitively.
-- The unique index is the authoritative conflict detector; callers only
-- pre-check to produce friendlier messages.
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_owner_name
    ON categories(owner_id, name COLLATE NOCASE);

-- Activities table: append-only record of domain events.
CREATE TABLE IF NOT EXISTS activities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    note_id TEXT,
    doc_id TEXT,
    detail TEXT NOT NULL DEFAULT '',
    recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_owner ON activities(owner_id, recorded_at);
`
