package bunq

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAccountNotFound is returned when no monetary account carries the
// requested alias.
var ErrAccountNotFound = errors.New("no monetary account matches the given alias")

// ErrAmbiguousAccount is returned when more than one monetary account
// carries the requested alias.
var ErrAmbiguousAccount = errors.New("multiple monetary accounts match the given alias")

// APIError represents a non-2xx response from the bunq API.
type APIError struct {
	StatusCode int
	Messages   []string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("bunq API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("bunq API error (status %d): %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// Transient reports whether the error is worth retrying. Rate limiting
// and server-side failures are transient; validation rejections and
// duplicate-reference conflicts are not.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient reports whether err is a retryable API error.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return false
}
