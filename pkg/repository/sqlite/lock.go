package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

const (
	DefaultLockTimeout    = 60 * time.Second
	DefaultLockMaxRetries = 3
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = time.Second

	// abandonedLockFactor is how many lock timeouts a holder may keep a lock before a competitor
	// deletes it regardless of its recorded expiry (crashed holder or clock skew)
	abandonedLockFactor = 2
)

type lockConfig struct {
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func defaultLockConfig() lockConfig {
	return lockConfig{
		timeout:        DefaultLockTimeout,
		maxRetries:     DefaultLockMaxRetries,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
	}
}

// LockInfo describes the current holder of a lock
type LockInfo = model.LockInfo

// Locker is an advisory lock stored as rows of the locks table, so it serializes work across
// every process sharing the database file, not only goroutines of this process.
type Locker struct {
	client *Client
	cfg    lockConfig
}

func newLocker(client *Client, cfg lockConfig) *Locker {
	if cfg.maxRetries < 1 {
		cfg.maxRetries = 1
	}
	return &Locker{
		client: client,
		cfg:    cfg,
	}
}

// Acquire takes the lock named key for this client's instance. While another instance holds it,
// Acquire retries with exponential backoff and returns ErrLockTimeout once the attempt budget is spent.
func (l *Locker) Acquire(ctx context.Context, key string) error {
	logger := logging.From(ctx)
	backoff := l.cfg.initialBackoff

	for attempt := 0; attempt < l.cfg.maxRetries; attempt++ {
		acquired, err := l.tryAcquire(ctx, key)
		if err != nil {
			return err
		}
		if acquired {
			logger.Debug("lock acquired", "key", key, "instance_id", l.client.instanceID, "attempt", attempt+1)
			return nil
		}

		if attempt == l.cfg.maxRetries-1 {
			break
		}

		reclaimed, err := l.reclaimAbandoned(ctx, key)
		if err != nil {
			return err
		}
		if reclaimed {
			continue
		}

		if err := sleepContext(ctx, backoff); err != nil {
			return goerr.Wrap(err, "interrupted while waiting for lock", goerr.V(LockKey, key))
		}
		backoff = min(backoff*2, l.cfg.maxBackoff)
	}

	return goerr.Wrap(ErrLockTimeout, "failed to acquire lock",
		goerr.V(LockKey, key),
		goerr.V(AttemptsKey, l.cfg.maxRetries),
	)
}

// tryAcquire purges expired locks and then inserts the lock row if no row exists for key
func (l *Locker) tryAcquire(ctx context.Context, key string) (bool, error) {
	conn, err := l.client.conn(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	now := l.client.now()
	if _, err := conn.ExecContext(ctx, "DELETE FROM locks WHERE expires_at < ?", now.UnixMilli()); err != nil {
		return false, goerr.Wrap(err, "failed to purge expired locks", goerr.V(LockKey, key), goerr.T(TagStorage))
	}

	res, err := conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO locks (key, instance_id, acquired_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, key, l.client.instanceID, now.UnixMilli(), now.Add(l.cfg.timeout).UnixMilli())
	if err != nil {
		return false, goerr.Wrap(err, "failed to insert lock", goerr.V(LockKey, key), goerr.T(TagStorage))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, goerr.Wrap(err, "failed to check lock insert", goerr.V(LockKey, key), goerr.T(TagStorage))
	}
	return n == 1, nil
}

// reclaimAbandoned deletes the lock on key when its holder has kept it far longer than any
// legitimate refresh takes. It reports whether a row was removed.
func (l *Locker) reclaimAbandoned(ctx context.Context, key string) (bool, error) {
	conn, err := l.client.conn(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	info, err := holder(ctx, conn, key)
	if err != nil {
		return false, err
	}
	if info == nil {
		// released between our insert and this check
		return true, nil
	}

	age := l.client.now().Sub(info.AcquiredAt)
	if age <= abandonedLockFactor*l.cfg.timeout {
		return false, nil
	}

	logging.From(ctx).Warn("detected potentially abandoned lock, forcing cleanup",
		"key", key,
		"holder", info.InstanceID,
		"age", age.String(),
	)

	res, err := conn.ExecContext(ctx, `
		DELETE FROM locks WHERE key = ? AND instance_id = ? AND acquired_at = ?
	`, key, info.InstanceID, info.AcquiredAt.UnixMilli())
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete abandoned lock", goerr.V(LockKey, key), goerr.T(TagStorage))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, goerr.Wrap(err, "failed to check abandoned lock delete", goerr.V(LockKey, key), goerr.T(TagStorage))
	}
	return n > 0, nil
}

// Release deletes the lock on key only if this instance still owns it. Releasing a lock that
// expired and was taken over by another instance is a no-op.
func (l *Locker) Release(ctx context.Context, key string) error {
	conn, err := l.client.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, "DELETE FROM locks WHERE key = ? AND instance_id = ?", key, l.client.instanceID)
	if err != nil {
		return goerr.Wrap(err, "failed to release lock", goerr.V(LockKey, key), goerr.T(TagStorage))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		logging.From(ctx).Debug("lock was no longer held by this instance", "key", key, "instance_id", l.client.instanceID)
	}
	return nil
}

// WithLock runs fn while holding the lock on key. The lock is released however fn ends; a failed
// release is only logged since the lock expires on its own.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx, key); err != nil {
		return err
	}

	defer func() {
		if err := l.Release(context.WithoutCancel(ctx), key); err != nil {
			logging.From(ctx).Warn("failed to release lock, it will expire automatically",
				"key", key,
				"error", err.Error(),
			)
		}
	}()

	return fn(ctx)
}

// Holder returns the current holder of key, or nil if the lock is free or expired
func (l *Locker) Holder(ctx context.Context, key string) (*LockInfo, error) {
	conn, err := l.client.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	info, err := holder(ctx, conn, key)
	if err != nil || info == nil {
		return nil, err
	}
	if info.ExpiresAt.Before(l.client.now()) {
		return nil, nil
	}
	return info, nil
}

func holder(ctx context.Context, q queryer, key string) (*LockInfo, error) {
	var instanceID string
	var acquiredAt, expiresAt int64
	err := q.QueryRowContext(ctx, `
		SELECT instance_id, acquired_at, expires_at FROM locks WHERE key = ?
	`, key).Scan(&instanceID, &acquiredAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read lock", goerr.V(LockKey, key), goerr.T(TagStorage))
	}

	return &LockInfo{
		Key:        key,
		InstanceID: instanceID,
		AcquiredAt: time.UnixMilli(acquiredAt),
		ExpiresAt:  time.UnixMilli(expiresAt),
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
