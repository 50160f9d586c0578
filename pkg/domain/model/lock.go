package model

import "time"

// LockInfo describes the current holder of a refresh lock
type LockInfo struct {
	Key        string
	InstanceID string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}
