package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
	"github.com/junyeong-ai/mcp-slack/pkg/repository/sqlite"
)

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestIsStale(t *testing.T) {
	ctx := context.Background()

	t.Run("never refreshed cache is stale", func(t *testing.T) {
		client := newTestClient(t)

		stale, err := client.IsStale(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).True()

		stale, err = client.IsStaleWithin(ctx, 365*24*time.Hour)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).True()
	})

	t.Run("one refreshed kind is not enough", func(t *testing.T) {
		client := newTestClient(t)

		_, err := client.ReplaceAccounts(ctx, []*model.Account{{ID: "U1", Name: "amy"}})
		gt.NoError(t, err).Required()

		stale, err := client.IsStale(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).True()
	})

	t.Run("replace records freshness", func(t *testing.T) {
		client := newTestClient(t)

		_, err := client.ReplaceAccounts(ctx, []*model.Account{{ID: "U1", Name: "amy"}})
		gt.NoError(t, err).Required()
		_, err = client.ReplaceChannels(ctx, []*model.Channel{{ID: "C1", Name: "general"}})
		gt.NoError(t, err).Required()

		stale, err := client.IsStale(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).False()

		stale, err = client.IsStaleWithin(ctx, 0)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).True()
	})

	t.Run("cache goes stale once the ttl passes", func(t *testing.T) {
		clock := newFakeClock()
		client := newTestClient(t, sqlite.WithClock(clock.Now), sqlite.WithDefaultTTL(time.Hour))

		for _, kind := range model.CacheKinds {
			gt.NoError(t, client.RecordRefresh(ctx, kind, clock.Now())).Required()
		}

		clock.Advance(59 * time.Minute)
		stale, err := client.IsStale(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).False()

		clock.Advance(time.Minute)
		stale, err = client.IsStale(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).True()
	})

	t.Run("unparsable timestamp counts as never refreshed", func(t *testing.T) {
		client := newTestClient(t)

		gt.NoError(t, client.RecordRefresh(ctx, model.CacheKindAccounts, time.Now())).Required()
		gt.NoError(t, client.SetMetadata(ctx, "last_channel_sync", "yesterday")).Required()

		stale, err := client.IsStale(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).True()

		last, err := client.LastRefresh(ctx, model.CacheKindChannels)
		gt.NoError(t, err).Required()
		gt.Bool(t, last.IsZero()).True()
	})

	t.Run("accepts JSON quoted timestamps", func(t *testing.T) {
		client := newTestClient(t)
		now := time.Now().UTC().Truncate(time.Second)

		for _, key := range []string{"last_account_sync", "last_channel_sync"} {
			gt.NoError(t, client.SetMetadata(ctx, key, `"`+now.Format(time.RFC3339)+`"`)).Required()
		}

		stale, err := client.IsStale(ctx)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale).False()

		last, err := client.LastRefresh(ctx, model.CacheKindAccounts)
		gt.NoError(t, err).Required()
		gt.Bool(t, last.Equal(now)).True()
	})
}

func TestRecordRefresh(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	at := time.Date(2025, 1, 2, 3, 4, 5, 6000, time.UTC)
	gt.NoError(t, client.RecordRefresh(ctx, model.CacheKindChannels, at)).Required()

	last, err := client.LastRefresh(ctx, model.CacheKindChannels)
	gt.NoError(t, err).Required()
	gt.Bool(t, last.Equal(at)).True()

	later := at.Add(time.Hour)
	gt.NoError(t, client.RecordRefresh(ctx, model.CacheKindChannels, later)).Required()

	last, err = client.LastRefresh(ctx, model.CacheKindChannels)
	gt.NoError(t, err).Required()
	gt.Bool(t, last.Equal(later)).True()

	gt.Error(t, client.RecordRefresh(ctx, model.CacheKind("files"), at)).Is(sqlite.ErrInvalidInput)
}
