package repository

import (
	"errors"
	"fmt"
	"net/http"
)

// Repository access errors.
// All of them are recoverable: callers treat the artifact as absent.
var (
	// ErrNotFound is returned when the repository answers 404.
	ErrNotFound = errors.New("resource not found")

	// ErrTimeout is returned when a request exceeds the client timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidJSON is returned by GetJSON when the body is not a JSON object.
	ErrInvalidJSON = errors.New("response is not a JSON object")

	// ErrBodyTooLarge is returned when a response exceeds the client's body size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidHost is returned by NewClient for a host that is not an absolute http(s) URL.
	ErrInvalidHost = errors.New("host must be an absolute http or https URL")

	// ErrInvalidPath is returned for repository paths that do not start with "/".
	ErrInvalidPath = errors.New("repository path must start with /")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Path       string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is makes a 404 StatusError match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
