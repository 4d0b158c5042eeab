package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"video-creator/internal/metrics"
)

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
	// KnownPaths are recorded under their own label; anything else is
	// recorded as "other".
	KnownPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths:  []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
		KnownPaths: []string{"/", "/create-video", "/version"},
	}
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(config.KnownPaths))
	for _, p := range config.KnownPaths {
		known[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w)
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path, known)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
			if r.ContentLength > 0 {
				metrics.HTTPRequestBodyBytes.WithLabelValues(path).Observe(float64(r.ContentLength))
			}
		})
	}
}

// normalizePath keeps label cardinality bounded: unknown paths (scanners,
// typos) all collapse into a single series.
func normalizePath(path string, known map[string]bool) string {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if known[path] {
		return path
	}
	return "other"
}
