package dashboard

import (
	"errors"

	"github.com/bissquit/problem-dashboard/internal/schedule"
)

// Store errors.
var (
	ErrFetch           = errors.New("failed to fetch problems")
	ErrInvalidInterval = schedule.ErrInvalidInterval
	ErrProblemNotFound = errors.New("problem not found")
	ErrStoreClosed     = errors.New("store is closed")
)

// FetchError wraps a failure of the data source.
// It matches ErrFetch with errors.Is and unwraps to the source error.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return ErrFetch.Error() + ": " + e.Err.Error()
}

// Unwrap returns the source error.
func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }
