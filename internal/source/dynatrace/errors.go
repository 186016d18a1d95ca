package dynatrace

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned when the environment URL or token is not configured.
var ErrMissingCredentials = errors.New("dynatrace base URL and API token are required")

// APIError describes a failed call to the problems API.
type APIError struct {
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("dynatrace error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("dynatrace error: %s", e.Message)
}

// Unwrap returns the transport error, if any.
func (e *APIError) Unwrap() error { return e.Err }

// IsRetryable reports whether the call may succeed when repeated.
func (e *APIError) IsRetryable() bool { return e.Retryable }

// isRetryable checks if an error is retryable.
// Errors that do not say otherwise are not retried.
func isRetryable(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}
