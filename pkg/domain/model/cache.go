package model

import "time"

// CacheKind identifies one of the locally replicated collections
type CacheKind string

const (
	CacheKindAccounts CacheKind = "accounts"
	CacheKindChannels CacheKind = "channels"
)

// CacheKinds lists every replicated collection
var CacheKinds = []CacheKind{CacheKindAccounts, CacheKindChannels}

// CacheCounts is the number of stored rows per collection, regardless of visibility
type CacheCounts struct {
	Accounts int
	Channels int
}

// CacheStatus summarises the replica for status output
type CacheStatus struct {
	Counts      CacheCounts
	Stale       bool
	LastRefresh map[CacheKind]time.Time // zero value when never refreshed
}

// RefreshTarget selects which collections a refresh covers
type RefreshTarget string

const (
	RefreshTargetUsers    RefreshTarget = "users"
	RefreshTargetChannels RefreshTarget = "channels"
	RefreshTargetAll      RefreshTarget = "all"
)

// ParseRefreshTarget maps a user supplied value to a RefreshTarget.
// Unknown values fall back to RefreshTargetAll.
func ParseRefreshTarget(s string) RefreshTarget {
	switch RefreshTarget(s) {
	case RefreshTargetUsers, RefreshTargetChannels:
		return RefreshTarget(s)
	default:
		return RefreshTargetAll
	}
}

// Includes reports whether the target covers kind
func (x RefreshTarget) Includes(kind CacheKind) bool {
	switch x {
	case RefreshTargetUsers:
		return kind == CacheKindAccounts
	case RefreshTargetChannels:
		return kind == CacheKindChannels
	default:
		return true
	}
}

// RefreshResult reports which collections a refresh replaced
type RefreshResult struct {
	Target           RefreshTarget
	Skipped          bool // cache was fresh and non-empty
	AccountsReplaced int
	ChannelsReplaced int
}
