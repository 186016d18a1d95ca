package httputil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/problem-dashboard/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const unknownRoute = "unknown"

// MetricsMiddleware observes request latency labelled by chi route pattern.
// It must run first so the measurement covers every other middleware.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method,
			routePattern(r),
			strconv.Itoa(responseStatus(ww)),
		).Observe(time.Since(start).Seconds())
	})
}

// routePattern returns the matched pattern, e.g. /api/v1/problems/{id}, so raw ids never become label values.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unknownRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unknownRoute
}
