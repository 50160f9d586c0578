package usecase

import "errors"

// Sentinel errors for use case layer
var (
	ErrSlackNotConfigured = errors.New("slack service is not configured")
	ErrRefreshFailed      = errors.New("cache refresh failed")
)

// Context keys for error values
const (
	TargetKey = "target"
	KindKey   = "kind"
)
