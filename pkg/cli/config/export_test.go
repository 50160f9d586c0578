package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// NewCacheForTest creates a Cache with the flag defaults
func NewCacheForTest(dataPath string) *Cache {
	return &Cache{
		backend:         BackendSQLite,
		dataPath:        dataPath,
		ttl:             24 * time.Hour,
		refreshInterval: defaultRefreshInterval,
		maxConns:        10,
		lockTimeout:     time.Minute,
		lockRetries:     3,
	}
}

// SetBackend overrides the cache backend
func (x *Cache) SetBackend(backend string) {
	x.backend = backend
}

// NewSlackForTest creates a Slack config with the given tokens
func NewSlackForTest(botToken, userToken string) *Slack {
	return &Slack{botToken: botToken, userToken: userToken}
}

// ApplyFile exposes applyFile for testing
func (x *Cache) ApplyFile(cmd *cli.Command, file *FileConfig) {
	x.applyFile(cmd, file)
}

// Token exposes token for testing
func (x *Slack) Token(file *FileConfig) string {
	return x.token(file)
}
