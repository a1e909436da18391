package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLite keeps results in a local database file, for repeated CLI runs
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewSQLite opens (or creates) the cache database at path
func NewSQLite(ctx context.Context, path string, ttl time.Duration, log zerolog.Logger) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS results (
    key TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("SQLite result cache opened")
	return &SQLite{db: db, ttl: ttl, log: log}, nil
}

// Get returns a live entry
func (s *SQLite) Get(ctx context.Context, key string) (*Result, bool, error) {
	var payload string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM results WHERE key = ?`, key,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	if expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		return nil, false, nil
	}

	var r Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt cache entry")
		return nil, false, nil
	}
	return &r, true, nil
}

// Put stores r, replacing any previous entry
func (s *SQLite) Put(ctx context.Context, key string, r *Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	var expiresAt int64
	if s.ttl > 0 {
		expiresAt = time.Now().Add(s.ttl).UnixNano()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (key, payload, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at
	`, key, string(payload), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Prune deletes expired entries and returns how many were removed
func (s *SQLite) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM results WHERE expires_at > 0 AND expires_at < ?`, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database
func (s *SQLite) Close() error {
	return s.db.Close()
}
