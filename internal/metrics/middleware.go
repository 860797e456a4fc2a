// internal/metrics/middleware.go
package metrics

import (
	"net/http"
	"strings"
)

// responseWriter wraps http.ResponseWriter to capture status
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// Middleware counts requests served by the metrics server
func Middleware(collector *Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			collector.RecordRequest(r.Method, normalizePath(r.URL.Path), wrapped.status)
		})
	}
}

// normalizePath keeps label cardinality bounded
func normalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	switch path {
	case "":
		return "/"
	case "/metrics", "/healthz", "/api/v1/soak/report":
		return path
	default:
		return "other"
	}
}
