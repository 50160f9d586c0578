package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/interfaces"
	"github.com/junyeong-ai/mcp-slack/pkg/repository/memory"
	"github.com/junyeong-ai/mcp-slack/pkg/repository/sqlite"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

const (
	cacheFileName          = "cache.db"
	defaultRefreshInterval = 10 * time.Minute
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Cache holds CLI flags for the local cache
type Cache struct {
	backend         string
	dataPath        string
	ttl             time.Duration
	refreshInterval time.Duration
	maxConns        int
	lockTimeout     time.Duration
	lockRetries     int
}

func (x *Cache) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache-backend",
			Usage:       "Cache backend type (sqlite or memory); memory cannot be shared between instances",
			Category:    "Cache",
			Value:       BackendSQLite,
			Sources:     cli.EnvVars("MCP_SLACK_CACHE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "data-path",
			Usage:       "Directory holding the cache database shared by all instances",
			Category:    "Cache",
			Value:       defaultDataPath(),
			Sources:     cli.EnvVars("MCP_SLACK_DATA_PATH", "DATA_PATH"),
			Destination: &x.dataPath,
		},
		&cli.DurationFlag{
			Name:        "cache-ttl",
			Usage:       "Age after which the cache is considered stale",
			Category:    "Cache",
			Value:       sqlite.DefaultTTL,
			Sources:     cli.EnvVars("MCP_SLACK_CACHE_TTL"),
			Destination: &x.ttl,
		},
		&cli.DurationFlag{
			Name:        "refresh-interval",
			Usage:       "How often the background worker checks whether the cache is stale",
			Category:    "Cache",
			Value:       defaultRefreshInterval,
			Sources:     cli.EnvVars("MCP_SLACK_REFRESH_INTERVAL"),
			Destination: &x.refreshInterval,
		},
		&cli.IntFlag{
			Name:        "max-connections",
			Usage:       "Maximum number of pooled database connections",
			Category:    "Cache",
			Value:       sqlite.DefaultMaxConns,
			Sources:     cli.EnvVars("MCP_SLACK_MAX_CONNECTIONS"),
			Destination: &x.maxConns,
		},
		&cli.DurationFlag{
			Name:        "lock-timeout",
			Usage:       "How long a refresh lock stays valid",
			Category:    "Cache",
			Value:       sqlite.DefaultLockTimeout,
			Sources:     cli.EnvVars("MCP_SLACK_LOCK_TIMEOUT"),
			Destination: &x.lockTimeout,
		},
		&cli.IntFlag{
			Name:        "lock-retries",
			Usage:       "Attempts made to take a refresh lock before giving up",
			Category:    "Cache",
			Value:       sqlite.DefaultLockMaxRetries,
			Sources:     cli.EnvVars("MCP_SLACK_LOCK_RETRIES"),
			Destination: &x.lockRetries,
		},
	}
}

func (x Cache) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("path", x.DBPath()),
		slog.String("ttl", x.ttl.String()),
		slog.String("refresh_interval", x.refreshInterval.String()),
		slog.Int("max_connections", x.maxConns),
	)
}

func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".mcp-slack")
}

// DBPath returns the database file path
func (x *Cache) DBPath() string {
	return filepath.Join(x.dataPath, cacheFileName)
}

// TTL returns the staleness window
func (x *Cache) TTL() time.Duration {
	return x.ttl
}

// RefreshInterval returns the background worker interval
func (x *Cache) RefreshInterval() time.Duration {
	return x.refreshInterval
}

// applyFile fills values the command line left unset from the configuration file
func (x *Cache) applyFile(cmd *cli.Command, file *FileConfig) {
	if file == nil {
		return
	}
	isSet := func(name string) bool {
		return cmd != nil && cmd.IsSet(name)
	}

	if !isSet("data-path") && file.Cache.DataPath != "" {
		x.dataPath = file.Cache.DataPath
	}
	if !isSet("cache-ttl") && file.CacheTTL() > 0 {
		x.ttl = file.CacheTTL()
	}
	if !isSet("refresh-interval") && file.Cache.RefreshInterval != "" {
		// validated by FileConfig.Validate
		if d, err := time.ParseDuration(file.Cache.RefreshInterval); err == nil {
			x.refreshInterval = d
		}
	}
	if !isSet("max-connections") && file.Cache.MaxConnections > 0 {
		x.maxConns = file.Cache.MaxConnections
	}
	if !isSet("lock-timeout") && file.Lock.TimeoutSeconds > 0 {
		x.lockTimeout = time.Duration(file.Lock.TimeoutSeconds) * time.Second
	}
	if !isSet("lock-retries") && file.Lock.MaxRetries > 0 {
		x.lockRetries = file.Lock.MaxRetries
	}
}

// Configure initializes and returns a cache based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (x *Cache) Configure(ctx context.Context, cmd *cli.Command, file *FileConfig) (interfaces.CacheRepository, error) {
	x.applyFile(cmd, file)

	if x.refreshInterval <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "refresh interval must be positive",
			goerr.V(FieldKey, "refresh-interval"), goerr.V(ValueKey, x.refreshInterval.String()))
	}

	switch x.backend {
	case BackendSQLite, "":
		client, err := x.configureSQLite(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil

	case BackendMemory:
		logging.From(ctx).Info("Using in-memory cache (single instance only)")
		return memory.New(memory.WithDefaultTTL(x.ttl)), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid cache backend",
			goerr.V(FieldKey, "cache-backend"), goerr.V(ValueKey, x.backend))
	}
}

func (x *Cache) configureSQLite(ctx context.Context) (*sqlite.Client, error) {
	if x.dataPath == "" {
		return nil, goerr.Wrap(ErrInvalidConfig, "data path is required", goerr.V(FieldKey, "data-path"))
	}

	client, err := sqlite.New(ctx, x.DBPath(),
		sqlite.WithMaxConns(x.maxConns),
		sqlite.WithDefaultTTL(x.ttl),
		sqlite.WithLockTimeout(x.lockTimeout),
		sqlite.WithLockRetry(x.lockRetries, sqlite.DefaultInitialBackoff, sqlite.DefaultMaxBackoff),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open cache", goerr.V("path", x.DBPath()))
	}

	logging.From(ctx).Debug("cache configured", "cache", x)
	return client, nil
}
