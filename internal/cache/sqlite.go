package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Cache backed by a single SQLite file.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Stats summarises the cache contents.
type Stats struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
	Expired int    `json:"expired"`
	Bytes   int64  `json:"bytes"`
}

// OpenSQLite opens or creates a cache database at path, creating parent
// directories as needed.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &SQLite{db: db, path: path, now: time.Now}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			body BLOB NOT NULL,
			stored_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Get retrieves a value from the cache. Expired entries are removed and
// reported as misses.
func (c *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT body, expires_at FROM responses WHERE key = ?`, key,
	).Scan(&body, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	if expiresAt > 0 && c.now().UnixNano() > expiresAt {
		if err := c.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	return body, true, nil
}

// Set stores a value in the cache, replacing any existing entry.
func (c *SQLite) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := c.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO responses (key, body, stored_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`, key, data, now.UnixNano(), expiresAt)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Delete removes a single entry.
func (c *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM responses WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were removed.
func (c *SQLite) Clear(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM responses`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared entries: %w", err)
	}
	return int(n), nil
}

// Stats reports entry counts and total body size.
func (c *SQLite) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: c.path}
	err := c.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at > 0 AND expires_at < ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(LENGTH(body)), 0)
		FROM responses
	`, c.now().UnixNano()).Scan(&stats.Entries, &stats.Expired, &stats.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	return stats, nil
}

// Close closes the database connection.
func (c *SQLite) Close() error {
	return c.db.Close()
}

var _ Cache = (*SQLite)(nil)
