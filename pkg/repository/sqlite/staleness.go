package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
)

var syncKeys = map[model.CacheKind]string{
	model.CacheKindAccounts: "last_account_sync",
	model.CacheKindChannels: "last_channel_sync",
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func syncKey(kind model.CacheKind) (string, error) {
	key, ok := syncKeys[kind]
	if !ok {
		return "", goerr.Wrap(ErrInvalidInput, "unknown cache kind", goerr.V(KindKey, kind))
	}
	return key, nil
}

func recordRefresh(ctx context.Context, ex execer, kind model.CacheKind, t time.Time) error {
	key, err := syncKey(kind)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, t.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return goerr.Wrap(err, "failed to record refresh time", goerr.V(KindKey, kind), goerr.T(TagStorage))
	}
	return nil
}

// lastRefresh reads the recorded refresh time of kind. ok is false when the value is
// missing or cannot be parsed; both count as never refreshed.
func lastRefresh(ctx context.Context, q queryer, kind model.CacheKind) (t time.Time, ok bool, err error) {
	key, err := syncKey(kind)
	if err != nil {
		return time.Time{}, false, err
	}

	var value string
	err = q.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, goerr.Wrap(err, "failed to read refresh time", goerr.V(KindKey, kind), goerr.T(TagStorage))
	}

	// older databases stored the timestamp as a JSON string
	t, err = time.Parse(time.RFC3339Nano, strings.Trim(value, `"`))
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// RecordRefresh stores t as the last successful refresh of kind
func (c *Client) RecordRefresh(ctx context.Context, kind model.CacheKind, t time.Time) error {
	conn, err := c.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return recordRefresh(ctx, conn, kind, t)
}

// LastRefresh returns the last successful refresh of kind, or the zero time if there is none
func (c *Client) LastRefresh(ctx context.Context, kind model.CacheKind) (time.Time, error) {
	conn, err := c.conn(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Close()

	t, _, err := lastRefresh(ctx, conn, kind)
	return t, err
}

// IsStale reports whether the cache is older than the configured default TTL
func (c *Client) IsStale(ctx context.Context) (bool, error) {
	return c.IsStaleWithin(ctx, c.defaultTTL)
}

// IsStaleWithin reports whether any collection was last refreshed more than ttl ago, or never.
// A single stale collection makes the whole cache stale.
func (c *Client) IsStaleWithin(ctx context.Context, ttl time.Duration) (bool, error) {
	conn, err := c.conn(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	threshold := c.now().Add(-ttl)
	for _, kind := range model.CacheKinds {
		t, ok, err := lastRefresh(ctx, conn, kind)
		if err != nil {
			return false, err
		}
		if !ok || !t.After(threshold) {
			return true, nil
		}
	}
	return false, nil
}
