package usecase_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
	"github.com/junyeong-ai/mcp-slack/pkg/repository/memory"
	"github.com/junyeong-ai/mcp-slack/pkg/repository/sqlite"
	"github.com/junyeong-ai/mcp-slack/pkg/usecase"
)

// mockSlackService is a mock implementation of slack.Service for testing
type mockSlackService struct {
	mu             sync.Mutex
	accounts       []*model.Account
	channels       []*model.Channel
	accountsErr    error
	channelsErr    error
	accountsCalled int
	channelsCalled int
}

func (m *mockSlackService) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountsCalled++
	if m.accountsErr != nil {
		return nil, m.accountsErr
	}
	return m.accounts, nil
}

func (m *mockSlackService) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channelsCalled++
	if m.channelsErr != nil {
		return nil, m.channelsErr
	}
	return m.channels, nil
}

func newTestRepo(t *testing.T) *sqlite.Client {
	t.Helper()
	repo, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newMockSlack() *mockSlackService {
	return &mockSlackService{
		accounts: []*model.Account{
			{ID: "U001", Name: "zed"},
			{ID: "U002", Name: "amy"},
			{ID: "U003", Name: "ci-bot", IsBot: true},
		},
		channels: []*model.Channel{
			{ID: "C001", Name: "general", IsChannel: true},
			{ID: "C002", Name: "archive", IsChannel: true, IsArchived: true},
		},
	}
}

func TestCacheUseCase_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("populates an empty cache", func(t *testing.T) {
		repo := newTestRepo(t)
		svc := newMockSlack()
		uc := usecase.New(repo, svc)

		result, err := uc.Cache.Refresh(ctx, model.RefreshTargetAll, false)
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Skipped).False()
		gt.Value(t, result.AccountsReplaced).Equal(3)
		gt.Value(t, result.ChannelsReplaced).Equal(2)

		accounts, err := repo.ListAccounts(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, accounts).Length(2).Required()
		gt.Value(t, accounts[0].Name).Equal("amy")

		stale, err := repo.IsStale(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).False()
	})

	t.Run("skips a fresh cache unless forced", func(t *testing.T) {
		repo := newTestRepo(t)
		svc := newMockSlack()
		uc := usecase.New(repo, svc)

		_, err := uc.Cache.Refresh(ctx, model.RefreshTargetAll, false)
		gt.NoError(t, err).Required()

		result, err := uc.Cache.Refresh(ctx, model.RefreshTargetAll, false)
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Skipped).True()
		gt.Value(t, svc.accountsCalled).Equal(1)

		result, err = uc.Cache.Refresh(ctx, model.RefreshTargetAll, true)
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Skipped).False()
		gt.Value(t, svc.accountsCalled).Equal(2)
	})

	t.Run("refreshes a fresh cache once the window passes", func(t *testing.T) {
		repo := newTestRepo(t)
		svc := newMockSlack()
		uc := usecase.New(repo, svc, usecase.WithRefreshWindow(0))

		_, err := uc.Cache.Refresh(ctx, model.RefreshTargetAll, false)
		gt.NoError(t, err).Required()

		result, err := uc.Cache.Refresh(ctx, model.RefreshTargetAll, false)
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Skipped).False()
	})

	t.Run("refreshes only the requested target", func(t *testing.T) {
		repo := newTestRepo(t)
		svc := newMockSlack()
		uc := usecase.New(repo, svc)

		result, err := uc.Cache.Refresh(ctx, model.RefreshTargetChannels, false)
		gt.NoError(t, err).Required()
		gt.Value(t, result.AccountsReplaced).Equal(0)
		gt.Value(t, result.ChannelsReplaced).Equal(2)
		gt.Value(t, svc.accountsCalled).Equal(0)

		counts, err := repo.Counts(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, counts.Accounts).Equal(0)
		gt.Value(t, counts.Channels).Equal(2)
	})

	t.Run("keeps the other collection when one fetch fails", func(t *testing.T) {
		repo := newTestRepo(t)
		svc := newMockSlack()
		svc.accountsErr = errors.New("rate limited")
		uc := usecase.New(repo, svc)

		result, err := uc.Cache.Refresh(ctx, model.RefreshTargetAll, true)
		gt.Error(t, err).Is(usecase.ErrRefreshFailed)
		gt.String(t, err.Error()).Contains("rate limited")
		gt.Value(t, result.ChannelsReplaced).Equal(2)

		counts, err := repo.Counts(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, counts.Accounts).Equal(0)
		gt.Value(t, counts.Channels).Equal(2)
	})

	t.Run("does not wipe the cache when Slack returns nothing", func(t *testing.T) {
		repo := newTestRepo(t)
		svc := newMockSlack()
		uc := usecase.New(repo, svc)

		_, err := uc.Cache.Refresh(ctx, model.RefreshTargetAll, false)
		gt.NoError(t, err).Required()

		svc.accounts = nil
		_, err = uc.Cache.Refresh(ctx, model.RefreshTargetUsers, true)
		gt.Error(t, err).Is(model.ErrInvalidInput)

		counts, err := repo.Counts(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, counts.Accounts).Equal(3)
	})

	t.Run("fails without a Slack service", func(t *testing.T) {
		uc := usecase.New(newTestRepo(t), nil)
		_, err := uc.Cache.Refresh(ctx, model.RefreshTargetAll, false)
		gt.Error(t, err).Is(usecase.ErrSlackNotConfigured)
	})
}

func TestCacheUseCase_RefreshIfStale(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := newMockSlack()
	uc := usecase.New(repo, svc)

	ran, err := uc.Cache.RefreshIfStale(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, ran).True()

	ran, err = uc.Cache.RefreshIfStale(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, ran).False()
	gt.Value(t, svc.channelsCalled).Equal(1)
}

func TestCacheUseCase_RefreshIfStaleSharedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	openInstance := func(t *testing.T, opts ...sqlite.Option) *sqlite.Client {
		t.Helper()
		repo, err := sqlite.New(ctx, path, opts...)
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	}

	t.Run("only one instance fetches a stale cache", func(t *testing.T) {
		svc := newMockSlack()
		instances := []*usecase.UseCases{
			usecase.New(openInstance(t), svc),
			usecase.New(openInstance(t), svc),
		}

		var wg sync.WaitGroup
		ran := make([]bool, len(instances))
		errs := make([]error, len(instances))
		start := make(chan struct{})
		for i, uc := range instances {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ran[i], errs[i] = uc.Cache.RefreshIfStale(ctx)
			}()
		}
		close(start)
		wg.Wait()

		for _, err := range errs {
			gt.NoError(t, err)
		}
		runs := 0
		for _, r := range ran {
			if r {
				runs++
			}
		}
		gt.Value(t, runs).Equal(1)
		gt.Value(t, svc.accountsCalled).Equal(1)
		gt.Value(t, svc.channelsCalled).Equal(1)
	})

	t.Run("instance leaves the refresh to the lock holder", func(t *testing.T) {
		holder := openInstance(t)
		gt.NoError(t, holder.RecordRefresh(ctx, model.CacheKindAccounts, time.Now().Add(-48*time.Hour))).Required()
		gt.NoError(t, holder.Locker().Acquire(ctx, "cache_refresh")).Required()
		defer func() { _ = holder.Locker().Release(ctx, "cache_refresh") }()

		svc := newMockSlack()
		uc := usecase.New(openInstance(t, sqlite.WithLockRetry(1, time.Millisecond, time.Millisecond)), svc)

		ran, err := uc.Cache.RefreshIfStale(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, ran).False()
		gt.Value(t, svc.accountsCalled).Equal(0)
	})
}

func TestCacheUseCase_RefreshIfStaleMemory(t *testing.T) {
	ctx := context.Background()
	svc := newMockSlack()
	uc := usecase.New(memory.New(), svc)

	ran, err := uc.Cache.RefreshIfStale(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, ran).True()
	gt.Value(t, svc.accountsCalled).Equal(1)

	ran, err = uc.Cache.RefreshIfStale(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, ran).False()
}

func TestCacheUseCase_Status(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	uc := usecase.New(repo, newMockSlack())

	status, err := uc.Cache.Status(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, status.Stale).True()
	gt.Bool(t, status.LastRefresh[model.CacheKindAccounts].IsZero()).True()

	before := time.Now().Add(-time.Second)
	_, err = uc.Cache.Refresh(ctx, model.RefreshTargetAll, false)
	gt.NoError(t, err).Required()

	status, err = uc.Cache.Status(ctx)
	gt.NoError(t, err).Required()
	gt.Bool(t, status.Stale).False()
	gt.Value(t, status.Counts.Accounts).Equal(3)
	gt.Value(t, status.Counts.Channels).Equal(2)
	gt.Bool(t, status.LastRefresh[model.CacheKindChannels].After(before)).True()
}

func TestCacheUseCase_Search(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	uc := usecase.New(repo, newMockSlack())

	_, err := uc.Cache.Refresh(ctx, model.RefreshTargetAll, false)
	gt.NoError(t, err).Required()

	channels, err := uc.Cache.SearchChannels(ctx, "general", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, channels).Length(1).Required()
	gt.Value(t, string(channels[0].ID)).Equal("C001")

	accounts, err := uc.Cache.SearchAccounts(ctx, "bot", 10)
	gt.NoError(t, err).Required()
	gt.Array(t, accounts).Length(0)
}
