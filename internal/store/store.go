// Package store implements the local transactional datastore: sessions,
// messages, session<->commit links, tags, summaries, annotations, machines
// and sync bookkeeping, backed by SQLite with an FTS5 search index.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	. "github.com/lorehq/lore/internal/logging"
)

// Store is the single source of truth for the local machine. All mutations
// that touch more than one row go through a transaction.
type Store struct {
	db   *sql.DB
	path string
}

// Config controls how a Store opens its underlying database file.
type Config struct {
	Path        string
	WALMode     bool
	BusyTimeout int // milliseconds
}

// DefaultConfig returns sane defaults for Config, given a database path.
func DefaultConfig(path string) Config {
	return Config{Path: path, WALMode: true, BusyTimeout: 5000}
}

const currentSchemaVersion = 3

// Open opens or creates the database at cfg.Path and runs any pending
// migrations. The parent directory is created if missing.
func Open(cfg Config) (*Store, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
			return nil, fmt.Errorf("store: create database directory: %w", err)
		}
	}

	dsn := cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1) // go-sqlite3 connections aren't safely shared across goroutines for writes

	if cfg.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			L_warn("store: failed to enable WAL mode", "error", err)
		}
	}
	timeout := cfg.BusyTimeout
	if timeout == 0 {
		timeout = 5000
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", timeout)); err != nil {
		L_warn("store: failed to set busy_timeout", "error", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		L_warn("store: failed to enable foreign keys", "error", err)
	}

	s := &Store{db: db, path: cfg.Path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration failed: %w", err)
	}

	L_info("store: opened", "path", cfg.Path)
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// migrate applies forward-only schema migrations, tracked in schema_version.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err != nil {
		version = 0
	}

	if version >= currentSchemaVersion {
		L_debug("store: schema up to date", "version", version)
		return nil
	}

	L_info("store: migrating schema", "from", version, "to", currentSchemaVersion)

	migrations := []func(*sql.DB) error{
		migrateV1,
		migrateV2,
		migrateV3,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](s.db); err != nil {
			return fmt.Errorf("migration v%d: %w", i+1, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("recording migration v%d: %w", i+1, err)
		}
		L_debug("store: applied migration", "version", i+1)
	}

	return nil
}
