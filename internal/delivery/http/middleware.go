package http

import (
	"net/http"
	"time"

	"github.com/egannguyen/storefront-core/internal/metrics"
)

// WithMetrics records request durations per method and route pattern.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		metrics.RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
