package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/interfaces"
	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
)

const (
	DefaultTTL         = 24 * time.Hour
	DefaultSearchLimit = 100
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is a process local cache. It offers the same read semantics as the SQLite cache
// but cannot be shared between instances, so there is nothing to lock.
type Memory struct {
	accounts   *collection[model.Account]
	channels   *collection[model.Channel]
	defaultTTL time.Duration
	now        func() time.Time
}

var _ interfaces.CacheRepository = &Memory{}

type Option func(*Memory)

// WithDefaultTTL sets the staleness window used by IsStale
func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Memory) {
		m.defaultTTL = ttl
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

func New(opts ...Option) *Memory {
	m := &Memory{
		accounts:   newCollection(model.CacheKindAccounts, entity[model.Account](accountEntity{})),
		channels:   newCollection(model.CacheKindChannels, entity[model.Channel](channelEntity{})),
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) ReplaceAccounts(ctx context.Context, accounts []*model.Account) (int, error) {
	return m.accounts.replace(ctx, accounts, m.now())
}

func (m *Memory) ReplaceChannels(ctx context.Context, channels []*model.Channel) (int, error) {
	return m.channels.replace(ctx, channels, m.now())
}

func (m *Memory) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	return m.accounts.list(), nil
}

func (m *Memory) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	return m.channels.list(), nil
}

func (m *Memory) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	return m.accounts.get(string(id)), nil
}

func (m *Memory) GetChannel(ctx context.Context, id model.ChannelID) (*model.Channel, error) {
	return m.channels.get(string(id)), nil
}

func (m *Memory) SearchAccounts(ctx context.Context, query string, limit int) ([]*model.Account, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return m.accounts.search(query, limit), nil
}

func (m *Memory) SearchChannels(ctx context.Context, query string, limit int) ([]*model.Channel, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return m.channels.search(query, limit), nil
}

func (m *Memory) IsStale(ctx context.Context) (bool, error) {
	return m.IsStaleWithin(ctx, m.defaultTTL)
}

// IsStaleWithin reports whether either collection was refreshed more than ttl ago, or never
func (m *Memory) IsStaleWithin(ctx context.Context, ttl time.Duration) (bool, error) {
	threshold := m.now().Add(-ttl)
	for _, t := range []time.Time{m.accounts.lastRefresh(), m.channels.lastRefresh()} {
		if t.IsZero() || !t.After(threshold) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) RecordRefresh(ctx context.Context, kind model.CacheKind, t time.Time) error {
	switch kind {
	case model.CacheKindAccounts:
		m.accounts.setRefresh(t)
	case model.CacheKindChannels:
		m.channels.setRefresh(t)
	default:
		return goerr.Wrap(model.ErrInvalidInput, "unknown cache kind", goerr.V("kind", kind))
	}
	return nil
}

func (m *Memory) LastRefresh(ctx context.Context, kind model.CacheKind) (time.Time, error) {
	switch kind {
	case model.CacheKindAccounts:
		return m.accounts.lastRefresh(), nil
	case model.CacheKindChannels:
		return m.channels.lastRefresh(), nil
	default:
		return time.Time{}, goerr.Wrap(model.ErrInvalidInput, "unknown cache kind", goerr.V("kind", kind))
	}
}

func (m *Memory) Counts(ctx context.Context) (*model.CacheCounts, error) {
	return &model.CacheCounts{
		Accounts: m.accounts.count(),
		Channels: m.channels.count(),
	}, nil
}

func (m *Memory) Close() error {
	return nil
}
