package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound   = goerr.New("configuration file not found")
	ErrInvalidConfig    = goerr.New("invalid configuration")
	ErrMissingToken     = goerr.New("slack token is required")
	ErrInvalidLogFormat = goerr.New("invalid log format")
	ErrInvalidLogLevel  = goerr.New("invalid log level")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	FieldKey      = "field"
	ValueKey      = "value"
)
