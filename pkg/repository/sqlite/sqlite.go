package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/junyeong-ai/mcp-slack/pkg/domain/interfaces"
	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

const (
	DefaultMaxConns       = 10
	DefaultMinIdle        = 2
	DefaultAcquireTimeout = 5 * time.Second
	DefaultBusyTimeout    = 5 * time.Second
	DefaultCacheSizeKiB   = 64000
	DefaultTTL            = 24 * time.Hour
	DefaultSearchLimit    = 100

	lockKeyAccounts = "accounts_update"
	lockKeyChannels = "channels_update"
	lockKeyRefresh  = "cache_refresh"
)

// Client is the SQLite backed cache shared by every server instance that points at the same file.
// Each instance gets its own holder identifier for the advisory locks.
type Client struct {
	db         *sql.DB
	path       string
	instanceID string

	acquireTimeout time.Duration
	defaultTTL     time.Duration
	now            func() time.Time

	locker   *Locker
	accounts *snapshotStore[model.Account]
	channels *snapshotStore[model.Channel]
}

var (
	_ interfaces.CacheRepository = &Client{}
	_ interfaces.RefreshLocker   = &Client{}
	_ interfaces.LockInspector   = &Client{}
	_ interfaces.SearchIndexer   = &Client{}
)

type config struct {
	maxConns       int
	minIdle        int
	acquireTimeout time.Duration
	busyTimeout    time.Duration
	cacheSizeKiB   int
	defaultTTL     time.Duration
	instanceID     string
	lock           lockConfig
	now            func() time.Time
}

// Option is a functional option for Client configuration
type Option func(*config)

// WithMaxConns bounds the number of simultaneous connections
func WithMaxConns(n int) Option {
	return func(c *config) {
		c.maxConns = n
	}
}

// WithMinIdle sets how many connections are opened eagerly and kept idle
func WithMinIdle(n int) Option {
	return func(c *config) {
		c.minIdle = n
	}
}

// WithAcquireTimeout bounds the wait for a pooled connection
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *config) {
		c.acquireTimeout = d
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database file
func WithBusyTimeout(d time.Duration) Option {
	return func(c *config) {
		c.busyTimeout = d
	}
}

// WithCacheSize sets the page cache size in KiB
func WithCacheSize(kib int) Option {
	return func(c *config) {
		c.cacheSizeKiB = kib
	}
}

// WithDefaultTTL sets the staleness window used by IsStale
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.defaultTTL = ttl
	}
}

// WithInstanceID overrides the generated lock holder identifier
func WithInstanceID(id string) Option {
	return func(c *config) {
		c.instanceID = id
	}
}

// WithLockTimeout sets how long an acquired lock stays valid
func WithLockTimeout(d time.Duration) Option {
	return func(c *config) {
		c.lock.timeout = d
	}
}

// WithLockRetry sets the acquire attempt budget and the backoff bounds between attempts
func WithLockRetry(maxRetries int, initialBackoff, maxBackoff time.Duration) Option {
	return func(c *config) {
		c.lock.maxRetries = maxRetries
		c.lock.initialBackoff = initialBackoff
		c.lock.maxBackoff = maxBackoff
	}
}

// WithClock replaces time.Now, used for staleness checks and lock timestamps
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// New opens (creating if needed) the cache database at path and initializes the schema.
// A schema failure is returned as an error; callers are expected to treat it as fatal.
func New(ctx context.Context, path string, opts ...Option) (*Client, error) {
	cfg := config{
		maxConns:       DefaultMaxConns,
		minIdle:        DefaultMinIdle,
		acquireTimeout: DefaultAcquireTimeout,
		busyTimeout:    DefaultBusyTimeout,
		cacheSizeKiB:   DefaultCacheSizeKiB,
		defaultTTL:     DefaultTTL,
		lock:           defaultLockConfig(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxConns < 1 {
		return nil, goerr.New("max connections must be positive", goerr.V("max_conns", cfg.maxConns))
	}
	if cfg.minIdle > cfg.maxConns {
		cfg.minIdle = cfg.maxConns
	}
	if cfg.instanceID == "" {
		cfg.instanceID = uuid.NewString()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, goerr.Wrap(err, "failed to create cache directory", goerr.V("dir", dir))
		}
	}

	db, err := sql.Open("sqlite", buildDSN(path, cfg))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open cache database", goerr.V("path", path))
	}
	db.SetMaxOpenConns(cfg.maxConns)
	db.SetMaxIdleConns(max(cfg.minIdle, 1))
	db.SetConnMaxIdleTime(10 * time.Minute)

	c := &Client{
		db:             db,
		path:           path,
		instanceID:     cfg.instanceID,
		acquireTimeout: cfg.acquireTimeout,
		defaultTTL:     cfg.defaultTTL,
		now:            cfg.now,
	}
	c.locker = newLocker(c, cfg.lock)
	c.accounts = newSnapshotStore(c, accountCodec{})
	c.channels = newSnapshotStore(c, channelCodec{})

	if err := c.warmUp(ctx, cfg.minIdle); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := c.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to initialize cache schema", goerr.V("path", path))
	}

	logging.From(ctx).Debug("cache database opened",
		"path", path,
		"instance_id", c.instanceID,
		"max_conns", cfg.maxConns,
	)

	return c, nil
}

// buildDSN attaches the per-connection pragmas understood by modernc.org/sqlite
func buildDSN(path string, cfg config) string {
	pragmas := []string{
		"_pragma=busy_timeout(" + strconv.Itoa(int(cfg.busyTimeout/time.Millisecond)) + ")",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(ON)",
		"_pragma=cache_size(-" + strconv.Itoa(cfg.cacheSizeKiB) + ")",
		"_txlock=immediate",
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}

// warmUp opens n connections up front so the first requests do not pay the open cost
func (c *Client) warmUp(ctx context.Context, n int) error {
	conns := make([]*sql.Conn, 0, n)
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	for i := 0; i < n; i++ {
		conn, err := c.conn(ctx)
		if err != nil {
			return err
		}
		conns = append(conns, conn)
	}
	return nil
}

// conn takes a connection from the pool, waiting at most acquireTimeout.
// The caller must Close the returned connection to give it back.
func (c *Client) conn(ctx context.Context) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, c.acquireTimeout)
	defer cancel()

	conn, err := c.db.Conn(acquireCtx)
	if err != nil {
		return nil, goerr.Wrap(ErrStorageUnavailable, "failed to get connection from pool",
			goerr.V("error", err.Error()),
			goerr.V("timeout", c.acquireTimeout.String()),
			goerr.T(TagStorage),
		)
	}
	if err := conn.PingContext(acquireCtx); err != nil {
		_ = conn.Close()
		return nil, goerr.Wrap(ErrStorageUnavailable, "pooled connection is not usable",
			goerr.V("error", err.Error()),
			goerr.T(TagStorage),
		)
	}
	return conn, nil
}

// Close closes every pooled connection
func (c *Client) Close() error {
	if err := c.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close cache database", goerr.T(TagStorage))
	}
	return nil
}

// Path returns the database file path
func (c *Client) Path() string {
	return c.path
}

// InstanceID returns the identifier this client records as lock holder
func (c *Client) InstanceID() string {
	return c.instanceID
}

// Locker returns the advisory lock manager bound to this client's instance identifier
func (c *Client) Locker() *Locker {
	return c.locker
}
