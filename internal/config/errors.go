package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// File.Validate. Callers compare them with errors.Is.
var (
	// ErrNoTarget is returned when no component path is given.
	ErrNoTarget = errors.New("no target specified: provide a component path")

	// ErrEmptyHost is returned when the repository host is empty.
	ErrEmptyHost = errors.New("repository host must not be empty")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDepth is returned for a negative recursion depth.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidFormat is returned for an unknown report format.
	ErrInvalidFormat = errors.New("invalid report format")

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidConfigFile is returned when the project file fails validation.
	ErrInvalidConfigFile = errors.New("invalid configuration file")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
