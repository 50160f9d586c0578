package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/junyeong-ai/mcp-slack/pkg/service/worker"
)

// mockRefresher is a mock implementation of worker.Refresher for testing
type mockRefresher struct {
	mu     sync.Mutex
	calls  int
	stale  bool
	err    error
	called chan struct{}
}

func newMockRefresher() *mockRefresher {
	return &mockRefresher{called: make(chan struct{}, 16)}
}

func (m *mockRefresher) RefreshIfStale(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.calls++
	stale, err := m.stale, m.err
	m.stale = false
	m.mu.Unlock()

	select {
	case m.called <- struct{}{}:
	default:
	}

	if err != nil {
		return false, err
	}
	return stale, nil
}

func (m *mockRefresher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitCalled(t *testing.T, m *mockRefresher) {
	t.Helper()
	select {
	case <-m.called:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher was not called")
	}
}

func TestCacheRefreshWorker_InitialRefresh(t *testing.T) {
	refresher := newMockRefresher()
	refresher.stale = true

	w := worker.NewCacheRefreshWorker(refresher, time.Hour)
	gt.NoError(t, w.Start(context.Background())).Required()
	waitCalled(t, refresher)
	w.Stop()

	gt.Value(t, refresher.callCount()).Equal(1)
}

func TestCacheRefreshWorker_PeriodicRefresh(t *testing.T) {
	refresher := newMockRefresher()

	w := worker.NewCacheRefreshWorker(refresher, 20*time.Millisecond)
	gt.NoError(t, w.Start(context.Background())).Required()

	for range 3 {
		waitCalled(t, refresher)
	}
	w.Stop()

	gt.Number(t, refresher.callCount()).GreaterOrEqual(3)
}

func TestCacheRefreshWorker_ContinuesAfterError(t *testing.T) {
	refresher := newMockRefresher()
	refresher.err = errors.New("slack unavailable")

	w := worker.NewCacheRefreshWorker(refresher, 20*time.Millisecond)
	gt.NoError(t, w.Start(context.Background())).Required()

	waitCalled(t, refresher)
	waitCalled(t, refresher)
	w.Stop()

	gt.Number(t, refresher.callCount()).GreaterOrEqual(2)
}

func TestCacheRefreshWorker_StopsOnContextCancel(t *testing.T) {
	refresher := newMockRefresher()
	ctx, cancel := context.WithCancel(context.Background())

	w := worker.NewCacheRefreshWorker(refresher, time.Hour)
	gt.NoError(t, w.Start(ctx)).Required()
	waitCalled(t, refresher)

	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}
