package httputil

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bissquit/problem-dashboard/internal/pkg/ctxlog"
	"github.com/go-chi/chi/v5/middleware"
)

// healthCheckPaths are polled by orchestrators and logged at debug level only.
var healthCheckPaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
}

// RequestLoggerMiddleware stores a logger tagged with the chi request id in the
// request context and logs one line per request once the handler returns.
// Server errors log at error level, client errors at warn.
func RequestLoggerMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := base.With("request_id", middleware.GetReqID(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctxlog.WithLogger(r.Context(), logger)))

			status := responseStatus(ww)
			logger.Log(r.Context(), requestLogLevel(r.URL.Path, status), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

func requestLogLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	if _, ok := healthCheckPaths[path]; ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// responseStatus treats a handler that never wrote a header as 200.
func responseStatus(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

// LoggerFrom returns the request-scoped logger.
func LoggerFrom(r *http.Request) *slog.Logger {
	return ctxlog.FromContext(r.Context())
}
