package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// Export internal functions for testing
var (
	ProcessSearchQuery = processSearchQuery
	BuildDSN           = func(path string) string {
		return buildDSN(path, config{busyTimeout: DefaultBusyTimeout, cacheSizeKiB: DefaultCacheSizeKiB})
	}
)

const (
	LockKeyAccounts = lockKeyAccounts
	LockKeyChannels = lockKeyChannels
	LockKeyRefresh  = lockKeyRefresh
)

// ExecRaw runs a statement directly against the database, bypassing the store
func (c *Client) ExecRaw(ctx context.Context, query string, args ...any) error {
	_, err := c.db.ExecContext(ctx, query, args...)
	return err
}

// DropSearchIndex removes the full-text tables and their triggers to force the substring fallback
func (c *Client) DropSearchIndex(ctx context.Context) error {
	for _, table := range []string{"accounts", "channels"} {
		for _, stmt := range []string{
			"DROP TRIGGER IF EXISTS " + table + "_fts_insert",
			"DROP TRIGGER IF EXISTS " + table + "_fts_delete",
			"DROP TRIGGER IF EXISTS " + table + "_fts_update",
			"DROP TABLE IF EXISTS " + table + "_fts",
		} {
			if err := c.ExecRaw(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// InsertLockRow fabricates a lock held by another instance
func (c *Client) InsertLockRow(ctx context.Context, key, instanceID string, acquiredAt, expiresAt time.Time) error {
	return c.ExecRaw(ctx, "INSERT OR REPLACE INTO locks (key, instance_id, acquired_at, expires_at) VALUES (?, ?, ?, ?)",
		key, instanceID, acquiredAt.UnixMilli(), expiresAt.UnixMilli())
}

// CountRows returns the number of rows in table
func (c *Client) CountRows(ctx context.Context, table string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}

// SetMetadata writes a raw metadata value
func (c *Client) SetMetadata(ctx context.Context, key, value string) error {
	return c.ExecRaw(ctx, "INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", key, value)
}

// Pragma reads a pragma value from a pooled connection
func (c *Client) Pragma(ctx context.Context, name string) (string, error) {
	var v string
	err := c.db.QueryRowContext(ctx, "PRAGMA "+name).Scan(&v)
	return v, err
}

// HoldConn checks out a pooled connection until the returned Conn is closed
func (c *Client) HoldConn(ctx context.Context) (*sql.Conn, error) {
	return c.db.Conn(ctx)
}
