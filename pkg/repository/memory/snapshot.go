package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
	"github.com/junyeong-ai/mcp-slack/pkg/utils/logging"
)

// entity is what a collection needs to know about its items
type entity[T any] interface {
	id(item *T) string
	name(item *T) string
	searchText(item *T) string
	listed(item *T) bool
	clone(item *T) *T
}

// collection holds one snapshot in memory. Replacing swaps the whole map under the write lock,
// so readers see either the old or the new generation.
type collection[T any] struct {
	mu          sync.RWMutex
	kind        model.CacheKind
	entity      entity[T]
	items       map[string]*T
	refreshedAt time.Time
}

func newCollection[T any](kind model.CacheKind, e entity[T]) *collection[T] {
	return &collection[T]{
		kind:   kind,
		entity: e,
		items:  make(map[string]*T),
	}
}

func (c *collection[T]) replace(ctx context.Context, items []*T, now time.Time) (int, error) {
	if len(items) == 0 {
		return 0, goerr.Wrap(model.ErrInvalidInput, "refusing to replace snapshot with an empty collection",
			goerr.V("kind", c.kind))
	}

	next := make(map[string]*T, len(items))
	dropped := 0
	for _, item := range items {
		if item == nil || c.entity.id(item) == "" {
			dropped++
			continue
		}
		// Store a deep copy to prevent external modifications
		next[c.entity.id(item)] = c.entity.clone(item)
	}
	if len(next) == 0 {
		return 0, goerr.Wrap(model.ErrInvalidInput, "no entity could be stored",
			goerr.V("kind", c.kind), goerr.V("dropped", dropped))
	}
	if dropped > 0 {
		logging.From(ctx).Warn("dropping entities without ID", "kind", c.kind, "dropped", dropped)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = next
	c.refreshedAt = now

	return len(next), nil
}

// sorted returns clones of listed items ordered by name
func (c *collection[T]) sorted(match func(item *T) bool) []*T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*T, 0, len(c.items))
	for _, item := range c.items {
		if !c.entity.listed(item) || (match != nil && !match(item)) {
			continue
		}
		result = append(result, c.entity.clone(item))
	}

	sort.Slice(result, func(i, j int) bool {
		ni, nj := c.entity.name(result[i]), c.entity.name(result[j])
		if ni != nj {
			return ni < nj
		}
		return c.entity.id(result[i]) < c.entity.id(result[j])
	})
	return result
}

func (c *collection[T]) list() []*T {
	return c.sorted(nil)
}

func (c *collection[T]) get(id string) *T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok {
		return nil
	}
	return c.entity.clone(item)
}

// search is a case-insensitive substring match over name and search text
func (c *collection[T]) search(query string, limit int) []*T {
	term := strings.ToLower(strings.TrimSpace(strings.NewReplacer("*", "", "%", "").Replace(query)))

	var result []*T
	if term == "" {
		result = c.list()
	} else {
		result = c.sorted(func(item *T) bool {
			return strings.Contains(strings.ToLower(c.entity.name(item)), term) ||
				strings.Contains(strings.ToLower(c.entity.searchText(item)), term)
		})
	}

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (c *collection[T]) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *collection[T]) lastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

func (c *collection[T]) setRefresh(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshedAt = t
}

type accountEntity struct{}

func (accountEntity) id(a *model.Account) string         { return string(a.ID) }
func (accountEntity) name(a *model.Account) string       { return a.Name }
func (accountEntity) searchText(a *model.Account) string { return a.SearchText() }
func (accountEntity) listed(a *model.Account) bool       { return a.Listed() }

func (accountEntity) clone(a *model.Account) *model.Account {
	copied := *a
	if a.Profile != nil {
		profile := *a.Profile
		copied.Profile = &profile
	}
	return &copied
}

type channelEntity struct{}

func (channelEntity) id(ch *model.Channel) string         { return string(ch.ID) }
func (channelEntity) name(ch *model.Channel) string       { return ch.Name }
func (channelEntity) searchText(ch *model.Channel) string { return ch.SearchText() }
func (channelEntity) listed(ch *model.Channel) bool       { return ch.Listed() }

func (channelEntity) clone(ch *model.Channel) *model.Channel {
	copied := *ch
	if ch.Topic != nil {
		topic := *ch.Topic
		copied.Topic = &topic
	}
	if ch.Purpose != nil {
		purpose := *ch.Purpose
		copied.Purpose = &purpose
	}
	return &copied
}
