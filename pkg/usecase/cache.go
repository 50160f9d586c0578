package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/interfaces"
	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
	slacksvc "github.com/junyeong-ai/mcp-slack/pkg/service/slack"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

// DefaultRefreshWindow is the age under which a non-empty cache is not fetched again
const DefaultRefreshWindow = time.Hour

// CacheUseCase keeps the local replica in sync with Slack
type CacheUseCase struct {
	repo          interfaces.CacheRepository
	slackService  slacksvc.Service
	refreshWindow time.Duration
}

// NewCacheUseCase creates a new CacheUseCase instance
func NewCacheUseCase(repo interfaces.CacheRepository, slackService slacksvc.Service, refreshWindow time.Duration) *CacheUseCase {
	return &CacheUseCase{
		repo:          repo,
		slackService:  slackService,
		refreshWindow: refreshWindow,
	}
}

// Refresh fetches the collections selected by target from Slack and replaces them in the cache.
// Unless force is set, a cache refreshed within the refresh window that holds any data is left alone.
// Each collection is refreshed independently; failures are joined into one error.
func (uc *CacheUseCase) Refresh(ctx context.Context, target model.RefreshTarget, force bool) (*model.RefreshResult, error) {
	if uc.slackService == nil {
		return nil, goerr.Wrap(ErrSlackNotConfigured, "cannot refresh cache")
	}

	logger := logging.From(ctx)
	result := &model.RefreshResult{Target: target}

	if !force {
		needed, err := uc.needsRefresh(ctx)
		if err != nil {
			return nil, err
		}
		if !needed {
			logger.Info("cache is fresh, skipping refresh", "target", target)
			result.Skipped = true
			return result, nil
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	collect := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}

	var eg errgroup.Group
	if target.Includes(model.CacheKindAccounts) {
		eg.Go(func() error {
			n, err := uc.refreshAccounts(ctx)
			if err != nil {
				collect(err)
				return nil
			}
			result.AccountsReplaced = n
			return nil
		})
	}
	if target.Includes(model.CacheKindChannels) {
		eg.Go(func() error {
			n, err := uc.refreshChannels(ctx)
			if err != nil {
				collect(err)
				return nil
			}
			result.ChannelsReplaced = n
			return nil
		})
	}
	_ = eg.Wait()

	if len(errs) > 0 {
		return result, goerr.Wrap(errors.Join(append([]error{ErrRefreshFailed}, errs...)...),
			"failed to refresh cache", goerr.V(TargetKey, target))
	}

	logger.Info("cache refreshed",
		"target", target,
		"accounts", result.AccountsReplaced,
		"channels", result.ChannelsReplaced,
	)
	return result, nil
}

// needsRefresh reports whether the cache is older than the refresh window or entirely empty
func (uc *CacheUseCase) needsRefresh(ctx context.Context) (bool, error) {
	stale, err := uc.repo.IsStaleWithin(ctx, uc.refreshWindow)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check cache staleness")
	}
	if stale {
		return true, nil
	}

	counts, err := uc.repo.Counts(ctx)
	if err != nil {
		return false, goerr.Wrap(err, "failed to count cached entities")
	}
	return counts.Accounts == 0 && counts.Channels == 0, nil
}

func (uc *CacheUseCase) refreshAccounts(ctx context.Context) (int, error) {
	accounts, err := uc.slackService.ListAccounts(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to fetch users", goerr.V(KindKey, model.CacheKindAccounts))
	}

	n, err := uc.repo.ReplaceAccounts(ctx, accounts)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to store users", goerr.V(KindKey, model.CacheKindAccounts))
	}
	return n, nil
}

func (uc *CacheUseCase) refreshChannels(ctx context.Context) (int, error) {
	channels, err := uc.slackService.ListChannels(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to fetch channels", goerr.V(KindKey, model.CacheKindChannels))
	}

	n, err := uc.repo.ReplaceChannels(ctx, channels)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to store channels", goerr.V(KindKey, model.CacheKindChannels))
	}
	return n, nil
}

// RefreshIfStale refreshes every collection when the repository's own TTL has passed.
// It reports whether a refresh ran.
//
// On a repository shared between processes the cycle runs under the repository's refresh lock
// and staleness is checked again once the lock is held, so only one instance fetches from Slack.
// An instance that cannot get the lock leaves the refresh to its holder.
func (uc *CacheUseCase) RefreshIfStale(ctx context.Context) (bool, error) {
	stale, err := uc.isStale(ctx)
	if err != nil || !stale {
		return false, err
	}

	locker, ok := uc.repo.(interfaces.RefreshLocker)
	if !ok {
		if _, err := uc.Refresh(ctx, model.RefreshTargetAll, true); err != nil {
			return true, err
		}
		return true, nil
	}

	var ran bool
	err = locker.WithRefreshLock(ctx, func(ctx context.Context) error {
		stale, err := uc.isStale(ctx)
		if err != nil {
			return err
		}
		if !stale {
			logging.From(ctx).Info("cache was refreshed by another instance")
			return nil
		}

		ran = true
		_, err = uc.Refresh(ctx, model.RefreshTargetAll, true)
		return err
	})
	if !ran && errors.Is(err, model.ErrLockTimeout) {
		logging.From(ctx).Info("another instance is refreshing the cache")
		return false, nil
	}
	return ran, err
}

func (uc *CacheUseCase) isStale(ctx context.Context) (bool, error) {
	stale, err := uc.repo.IsStale(ctx)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check cache staleness")
	}
	return stale, nil
}

// Status summarises the cache contents and freshness
func (uc *CacheUseCase) Status(ctx context.Context) (*model.CacheStatus, error) {
	counts, err := uc.repo.Counts(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count cached entities")
	}

	stale, err := uc.repo.IsStale(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check cache staleness")
	}

	status := &model.CacheStatus{
		Counts:      *counts,
		Stale:       stale,
		LastRefresh: make(map[model.CacheKind]time.Time, len(model.CacheKinds)),
	}
	for _, kind := range model.CacheKinds {
		t, err := uc.repo.LastRefresh(ctx, kind)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read last refresh", goerr.V(KindKey, kind))
		}
		status.LastRefresh[kind] = t
	}

	return status, nil
}

// SearchAccounts searches cached users
func (uc *CacheUseCase) SearchAccounts(ctx context.Context, query string, limit int) ([]*model.Account, error) {
	accounts, err := uc.repo.SearchAccounts(ctx, query, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search users", goerr.V("query", query))
	}
	return accounts, nil
}

// SearchChannels searches cached channels
func (uc *CacheUseCase) SearchChannels(ctx context.Context, query string, limit int) ([]*model.Channel, error) {
	channels, err := uc.repo.SearchChannels(ctx, query, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search channels", goerr.V("query", query))
	}
	return channels, nil
}
