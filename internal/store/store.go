// Package store is the SQLite persistence layer: the articles table, its
// full-text index, and query helpers for search and reporting.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store owns the database handle. All access goes through its methods; the
// handle is safe for concurrent use.
type Store struct {
	db           *sql.DB
	ftsAvailable bool
	logger       *zap.Logger
}

// Open creates or opens the database at dbPath, applies pragmas, and ensures
// the schema. A build without FTS5 degrades to LIKE-based search and is
// reported once.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	const newsTable = `
	CREATE TABLE IF NOT EXISTS news (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		portal     TEXT NOT NULL,
		url        TEXT NOT NULL UNIQUE,
		title      TEXT,
		content    TEXT,
		topic      TEXT,
		pub_date   TEXT,
		created_at TEXT DEFAULT (datetime('now'))
	)`
	if _, err := s.db.Exec(newsTable); err != nil {
		return fmt.Errorf("create news table: %w", err)
	}
	if _, err := s.db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_news_topic ON news(topic)`); err != nil {
		return fmt.Errorf("create topic index: %w", err)
	}

	// Probe for FTS5 by creating the index table. Failure here means the
	// SQLite build lacks the module; search falls back to LIKE.
	const ftsTable = `
	CREATE VIRTUAL TABLE IF NOT EXISTS news_fts USING fts5(
		title, content, topic, portal, url
	)`
	if _, err := s.db.Exec(ftsTable); err != nil {
		s.logger.Warn("FTS5 unavailable, search degrades to substring matching",
			zap.Error(err))
		s.ftsAvailable = false
		return nil
	}
	s.ftsAvailable = true

	// The index rowid mirrors news.id so search results can join back.
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS news_ai AFTER INSERT ON news BEGIN
			INSERT INTO news_fts(rowid, title, content, topic, portal, url)
			VALUES (new.id, coalesce(new.title,''), coalesce(new.content,''),
				coalesce(new.topic,''), new.portal, new.url);
		END`,
		`CREATE TRIGGER IF NOT EXISTS news_au AFTER UPDATE ON news BEGIN
			UPDATE news_fts SET
				title = coalesce(new.title,''),
				content = coalesce(new.content,''),
				topic = coalesce(new.topic,''),
				portal = new.portal,
				url = new.url
			WHERE rowid = new.id;
		END`,
		`CREATE TRIGGER IF NOT EXISTS news_ad AFTER DELETE ON news BEGIN
			DELETE FROM news_fts WHERE rowid = old.id;
		END`,
	}
	for _, t := range triggers {
		if _, err := s.db.Exec(t); err != nil {
			return fmt.Errorf("create fts trigger: %w", err)
		}
	}
	return nil
}

// FTSAvailable reports whether full-text search is active.
func (s *Store) FTSAvailable() bool {
	return s.ftsAvailable
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
