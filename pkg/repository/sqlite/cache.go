package sqlite

import (
	"context"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
)

// ReplaceAccounts swaps the account snapshot for accounts under the cross-instance accounts lock.
// It returns the number of accounts stored.
func (c *Client) ReplaceAccounts(ctx context.Context, accounts []*model.Account) (int, error) {
	var stored int
	err := c.locker.WithLock(ctx, lockKeyAccounts, func(ctx context.Context) error {
		n, err := c.accounts.replace(ctx, accounts)
		stored = n
		return err
	})
	return stored, err
}

// ReplaceChannels swaps the channel snapshot for channels under the cross-instance channels lock.
// It returns the number of channels stored.
func (c *Client) ReplaceChannels(ctx context.Context, channels []*model.Channel) (int, error) {
	var stored int
	err := c.locker.WithLock(ctx, lockKeyChannels, func(ctx context.Context) error {
		n, err := c.channels.replace(ctx, channels)
		stored = n
		return err
	})
	return stored, err
}

// WithRefreshLock runs fn under the refresh cycle lock. It is separate from the per-collection
// locks taken by ReplaceAccounts and ReplaceChannels, so fn may call both.
func (c *Client) WithRefreshLock(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.locker.WithLock(ctx, lockKeyRefresh, fn)
}

// ListAccounts returns every non-bot account ordered by name
func (c *Client) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	return c.accounts.list(ctx)
}

// ListChannels returns every non-archived channel ordered by name
func (c *Client) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	return c.channels.list(ctx)
}

// GetAccount returns the account with id, or nil and no error if it is not cached
func (c *Client) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	return c.accounts.get(ctx, string(id))
}

// GetChannel returns the channel with id, or nil and no error if it is not cached
func (c *Client) GetChannel(ctx context.Context, id model.ChannelID) (*model.Channel, error) {
	return c.channels.get(ctx, string(id))
}

func (c *Client) SearchAccounts(ctx context.Context, query string, limit int) ([]*model.Account, error) {
	return c.accounts.search(ctx, query, limit)
}

func (c *Client) SearchChannels(ctx context.Context, query string, limit int) ([]*model.Channel, error) {
	return c.channels.search(ctx, query, limit)
}

// Counts returns the number of stored accounts and channels, hidden ones included
func (c *Client) Counts(ctx context.Context) (*model.CacheCounts, error) {
	accounts, err := c.accounts.count(ctx)
	if err != nil {
		return nil, err
	}
	channels, err := c.channels.count(ctx)
	if err != nil {
		return nil, err
	}

	return &model.CacheCounts{
		Accounts: accounts,
		Channels: channels,
	}, nil
}

// RefreshLocks returns the current holder of each collection's refresh lock; free locks are omitted
func (c *Client) RefreshLocks(ctx context.Context) (map[model.CacheKind]*LockInfo, error) {
	keys := map[model.CacheKind]string{
		model.CacheKindAccounts: lockKeyAccounts,
		model.CacheKindChannels: lockKeyChannels,
	}

	result := make(map[model.CacheKind]*LockInfo, len(keys))
	for kind, key := range keys {
		info, err := c.locker.Holder(ctx, key)
		if err != nil {
			return nil, err
		}
		if info != nil {
			result[kind] = info
		}
	}
	return result, nil
}
