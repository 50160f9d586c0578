package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// FileConfig is the optional TOML configuration file. Command line flags and environment
// variables take precedence over values set here.
type FileConfig struct {
	Slack SlackSection `toml:"slack"`
	Cache CacheSection `toml:"cache"`
	Lock  LockSection  `toml:"lock"`
}

type SlackSection struct {
	BotToken  string `toml:"bot_token" masq:"secret"`
	UserToken string `toml:"user_token" masq:"secret"`
}

type CacheSection struct {
	DataPath         string `toml:"data_path"`
	TTLUsersHours    int    `toml:"ttl_users_hours"`
	TTLChannelsHours int    `toml:"ttl_channels_hours"`
	RefreshInterval  string `toml:"refresh_interval"`
	MaxConnections   int    `toml:"max_connections"`
}

type LockSection struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	MaxRetries     int `toml:"max_retries"`
}

// Validate checks value ranges of every section
func (c *FileConfig) Validate() error {
	if c.Cache.TTLUsersHours < 0 {
		return goerr.Wrap(ErrInvalidConfig, "ttl must not be negative",
			goerr.V(FieldKey, "cache.ttl_users_hours"), goerr.V(ValueKey, c.Cache.TTLUsersHours))
	}
	if c.Cache.TTLChannelsHours < 0 {
		return goerr.Wrap(ErrInvalidConfig, "ttl must not be negative",
			goerr.V(FieldKey, "cache.ttl_channels_hours"), goerr.V(ValueKey, c.Cache.TTLChannelsHours))
	}
	if c.Cache.RefreshInterval != "" {
		d, err := time.ParseDuration(c.Cache.RefreshInterval)
		if err != nil || d <= 0 {
			return goerr.Wrap(ErrInvalidConfig, "refresh interval must be a positive duration",
				goerr.V(FieldKey, "cache.refresh_interval"), goerr.V(ValueKey, c.Cache.RefreshInterval))
		}
	}
	if c.Cache.MaxConnections < 0 {
		return goerr.Wrap(ErrInvalidConfig, "max connections must not be negative",
			goerr.V(FieldKey, "cache.max_connections"), goerr.V(ValueKey, c.Cache.MaxConnections))
	}
	if c.Lock.TimeoutSeconds < 0 {
		return goerr.Wrap(ErrInvalidConfig, "lock timeout must not be negative",
			goerr.V(FieldKey, "lock.timeout_seconds"), goerr.V(ValueKey, c.Lock.TimeoutSeconds))
	}
	if c.Lock.MaxRetries < 0 {
		return goerr.Wrap(ErrInvalidConfig, "lock retries must not be negative",
			goerr.V(FieldKey, "lock.max_retries"), goerr.V(ValueKey, c.Lock.MaxRetries))
	}
	return nil
}

// CacheTTL is the staleness window for the whole cache: the shorter of the two per-kind windows
// that are set. Zero means not configured.
func (c *FileConfig) CacheTTL() time.Duration {
	hours := 0
	for _, h := range []int{c.Cache.TTLUsersHours, c.Cache.TTLChannelsHours} {
		if h > 0 && (hours == 0 || h < hours) {
			hours = h
		}
	}
	return time.Duration(hours) * time.Hour
}

// LoadFileConfig reads and validates the TOML file at path. An empty path yields an empty config.
func LoadFileConfig(path string) (*FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "failed to read config file", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse config file",
			goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid config file", goerr.V(ConfigPathKey, path))
	}

	return &cfg, nil
}
