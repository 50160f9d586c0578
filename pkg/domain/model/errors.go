package model

import "github.com/m-mizutani/goerr/v2"

// Cache errors shared by every repository backend
var (
	// ErrInvalidInput is returned when a replace is given nothing usable to store
	ErrInvalidInput = goerr.New("invalid input")

	// ErrSerialization is returned when an entity cannot be encoded or decoded
	ErrSerialization = goerr.New("serialization failure")

	// ErrLockTimeout is returned when a lock could not be acquired within the retry budget
	ErrLockTimeout = goerr.New("lock acquisition timed out")

	// ErrStorageUnavailable is returned when the backing store cannot serve the request
	ErrStorageUnavailable = goerr.New("storage unavailable")
)
