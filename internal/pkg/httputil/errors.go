package httputil

import (
	"cmp"
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/problem-dashboard/internal/pkg/ctxlog"
)

// ErrorMapping maps errors matching Target (via errors.Is) to an HTTP status.
type ErrorMapping struct {
	Target error
	Status int
	// Message replaces err.Error() in the response body when set.
	Message string
}

// contextErrors apply after the caller's mappings.
var contextErrors = []ErrorMapping{
	{Target: context.DeadlineExceeded, Status: http.StatusGatewayTimeout, Message: "request timed out"},
	{Target: context.Canceled, Status: http.StatusServiceUnavailable, Message: "request cancelled"},
}

// HandleError writes the response for the first matching mapping.
// Mapped 5xx responses are logged at warn level. Unmatched errors are logged
// and answered with 500 without leaking the error text.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	logger := ctxlog.FromContext(ctx)

	if m, ok := match(err, mappings); ok {
		if m.Status >= http.StatusInternalServerError {
			logger.Warn("request failed", "status", m.Status, "error", err)
		}
		Error(w, m.Status, cmp.Or(m.Message, err.Error()))
		return
	}

	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}

func match(err error, mappings []ErrorMapping) (ErrorMapping, bool) {
	for _, set := range [][]ErrorMapping{mappings, contextErrors} {
		for _, m := range set {
			if errors.Is(err, m.Target) {
				return m, true
			}
		}
	}
	return ErrorMapping{}, false
}
