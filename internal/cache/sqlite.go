// Package cache provides the durable on-host key/value mirror of site settings.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteCache stores JSON blobs by key in a single SQLite table.
type SQLiteCache struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteCache opens (creating if needed) the cache database at path.
// Use ":memory:" for a throwaway cache.
func NewSQLiteCache(path string, logger zerolog.Logger) (*SQLiteCache, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{
		db:     db,
		logger: logger.With().Str("component", "local_cache").Logger(),
	}

	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache database: %w", err)
	}

	c.logger.Info().Str("path", path).Msg("local cache initialized")
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

// Read returns the value stored under key and whether it exists.
func (c *SQLiteCache) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache entry %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// Write stores data under key, replacing any previous value.
func (c *SQLiteCache) Write(ctx context.Context, key string, data []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write cache entry %q: %w", key, err)
	}
	c.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("cache entry written")
	return nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
