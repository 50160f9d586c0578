package interfaces

import (
	"context"
	"time"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
)

// CacheRepository is the local replica of the Slack users and conversations lists.
//
// Consistency Policy:
// - Replace* swaps a whole collection atomically; readers see the old or the new snapshot, never a mix
// - Replace* rejects an empty collection so a failed fetch never wipes the cache
// - Reads and searches never wait on the refresh locks
type CacheRepository interface {
	// ReplaceAccounts replaces the account snapshot and returns the number stored
	ReplaceAccounts(ctx context.Context, accounts []*model.Account) (int, error)

	// ReplaceChannels replaces the channel snapshot and returns the number stored
	ReplaceChannels(ctx context.Context, channels []*model.Channel) (int, error)

	// ListAccounts returns non-bot accounts ordered by name
	ListAccounts(ctx context.Context) ([]*model.Account, error)

	// ListChannels returns non-archived channels ordered by name
	ListChannels(ctx context.Context) ([]*model.Channel, error)

	// GetAccount returns nil and no error when the account is not cached
	GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error)

	// GetChannel returns nil and no error when the channel is not cached
	GetChannel(ctx context.Context, id model.ChannelID) (*model.Channel, error)

	SearchAccounts(ctx context.Context, query string, limit int) ([]*model.Account, error)
	SearchChannels(ctx context.Context, query string, limit int) ([]*model.Channel, error)

	// IsStale uses the repository's default TTL
	IsStale(ctx context.Context) (bool, error)
	IsStaleWithin(ctx context.Context, ttl time.Duration) (bool, error)

	RecordRefresh(ctx context.Context, kind model.CacheKind, t time.Time) error
	LastRefresh(ctx context.Context, kind model.CacheKind) (time.Time, error)

	Counts(ctx context.Context) (*model.CacheCounts, error)

	Close() error
}

// RefreshLocker is implemented by repositories shared between processes. WithRefreshLock runs fn
// while no other instance runs a refresh cycle on the same store.
type RefreshLocker interface {
	WithRefreshLock(ctx context.Context, fn func(ctx context.Context) error) error
}

// LockInspector reports the current holders of the per-collection refresh locks
type LockInspector interface {
	RefreshLocks(ctx context.Context) (map[model.CacheKind]*model.LockInfo, error)
}

// SearchIndexer is implemented by repositories keeping a derived full-text index
type SearchIndexer interface {
	RebuildSearchIndex(ctx context.Context) error
}
