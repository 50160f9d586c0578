package worker

import (
	"context"
	"time"

	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

// Refresher refreshes the cache when it has gone stale and reports whether it did
type Refresher interface {
	RefreshIfStale(ctx context.Context) (bool, error)
}

// CacheRefreshWorker periodically checks the cache and refreshes it from Slack once stale.
//
// Several server instances may share one cache file. Each runs its own worker; the refresher
// takes the repository's refresh lock and checks staleness again under it, so the instances
// that lose the race fetch nothing.
type CacheRefreshWorker struct {
	refresher Refresher
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewCacheRefreshWorker creates a new worker checking staleness every interval
func NewCacheRefreshWorker(refresher Refresher, interval time.Duration) *CacheRefreshWorker {
	return &CacheRefreshWorker{
		refresher: refresher,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background refresh loop without blocking the caller
func (w *CacheRefreshWorker) Start(ctx context.Context) error {
	logging.From(ctx).Info("cache refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *CacheRefreshWorker) Stop() {
	logging.Default().Info("cache refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("cache refresh worker stopped")
}

func (w *CacheRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.From(ctx).Info("cache refresh worker context cancelled")
			return
		}
	}
}

// refresh runs one check; failures keep the previous snapshot and are retried next interval
func (w *CacheRefreshWorker) refresh(ctx context.Context) {
	startTime := time.Now()

	ran, err := w.refresher.RefreshIfStale(ctx)
	if err != nil {
		logging.From(ctx).Error("cache refresh failed (will retry next interval)",
			"error", err.Error())
		return
	}
	if ran {
		logging.From(ctx).Info("cache refresh completed",
			"duration", time.Since(startTime).String())
	}
}
