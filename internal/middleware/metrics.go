package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flowbit/nl2sql/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics records request counts and latency labelled by route pattern, so
// unknown paths do not create new series.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		metrics.ObserveHTTP(r.Method, route, strconv.Itoa(rw.status), time.Since(start))
	})
}
