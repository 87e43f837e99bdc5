package store

import "database/sql"

// migrateV1 creates the core schema: sessions, messages, session_links,
// repositories, and their indexes.
func migrateV1(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		tool_version TEXT,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		model TEXT,
		working_directory TEXT NOT NULL,
		git_branch TEXT,
		source_path TEXT,
		message_count INTEGER NOT NULL DEFAULT 0,
		machine_id TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		parent_id TEXT,
		idx INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		model TEXT,
		git_branch TEXT,
		cwd TEXT,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS session_links (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		link_type TEXT NOT NULL,
		commit_sha TEXT,
		branch TEXT,
		remote TEXT,
		created_at TEXT NOT NULL,
		created_by TEXT NOT NULL,
		confidence REAL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS repositories (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		remote_url TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		last_session_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_working_directory ON sessions(working_directory);
	CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);
	CREATE INDEX IF NOT EXISTS idx_session_links_session_id ON session_links(session_id);
	CREATE INDEX IF NOT EXISTS idx_session_links_commit_sha ON session_links(commit_sha);

	CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		message_id,
		text_content,
		tokenize='porter unicode61'
	);
	`)
	return err
}

// migrateV2 adds tags, summaries, annotations and the machines table that
// backs machine_id on sessions.
func migrateV2(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS machines (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tags (
		session_id TEXT NOT NULL,
		label TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (session_id, label),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS summaries (
		session_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		provider TEXT,
		model TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS annotations (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_tags_session_id ON tags(session_id);
	CREATE INDEX IF NOT EXISTS idx_annotations_session_id ON annotations(session_id);
	`)
	return err
}

// migrateV3 adds per-session sync bookkeeping.
func migrateV3(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sync_status (
		session_id TEXT PRIMARY KEY,
		server_time TEXT NOT NULL,
		synced_at TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`)
	return err
}
