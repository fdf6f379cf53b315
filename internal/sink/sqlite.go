package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
	"postimport/internal/domain/content"
	domainerr "postimport/internal/domain/errors"
)

var ErrNotFound = errors.New("not found")

type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the posts
// table exists.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &SQLite{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    key TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    published_at INTEGER NOT NULL,
    html TEXT NOT NULL,
    metadata TEXT NOT NULL,
    imported_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_published_at ON posts(published_at DESC);
`)
	return err
}

func (s *SQLite) Insert(ctx context.Context, post *content.Metadata) error {
	r, err := toRow(post)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO posts (key, title, published_at, html, metadata, imported_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		r.Key, r.Title, r.PublishedAt, r.HTML, r.Metadata, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domainerr.ErrPersistenceFailure, r.Key, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (*content.Metadata, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT metadata FROM posts WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeMetadata(raw)
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}
