package sqlite

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/junyeong-ai/mcp-slack/pkg/domain/model"
)

// Errors wrapped by this package; they are the model sentinels
var (
	ErrInvalidInput       = model.ErrInvalidInput
	ErrSerialization      = model.ErrSerialization
	ErrLockTimeout        = model.ErrLockTimeout
	ErrStorageUnavailable = model.ErrStorageUnavailable
)

// TagStorage marks failures originating in the database engine
var TagStorage = goerr.NewTag("storage")

// Context keys for error values
const (
	KindKey     = "kind"
	LockKey     = "lock_key"
	EntityIDKey = "entity_id"
	AttemptsKey = "attempts"
)
