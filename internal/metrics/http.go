package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by route template rather than raw path to bound
// cardinality.
var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status code
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration records HTTP request latency in seconds
	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			// Buckets: 1ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// HTTPRequestsInFlight tracks the current number of requests being processed
	HTTPRequestsInFlight = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	// HTTPRequestSize records the size of HTTP request bodies in bytes
	HTTPRequestSize = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request body size in bytes",
			// Buckets: 100B, 1KB, 10KB, 100KB, 1MB, 10MB
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"method", "route"},
	)

	// HTTPResponseSize records the size of HTTP response bodies in bytes
	HTTPResponseSize = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response body size in bytes",
			// Buckets: 100B, 1KB, 10KB, 100KB, 1MB, 10MB
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"method", "route"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMiddleware returns a middleware that records HTTP metrics
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode == 0 {
			wrapped.statusCode = http.StatusOK
		}
		route := RouteLabel(r.URL.Path)
		method := r.Method

		HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if r.ContentLength > 0 {
			HTTPRequestSize.WithLabelValues(method, route).Observe(float64(r.ContentLength))
		}
		HTTPResponseSize.WithLabelValues(method, route).Observe(float64(wrapped.bytesWritten))
	})
}

// unmatchedRoute labels every path outside the served routes so scanners
// cannot grow the label set.
const unmatchedRoute = "unmatched"

var knownRoutes = map[string]bool{
	"/healthz":                      true,
	"/readyz":                       true,
	"/version":                      true,
	"/metrics":                      true,
	"/api/v1/events":                true,
	"/api/v1/events/{id}":           true,
	"/api/v1/events/{id}/reviews":   true,
	"/api/v1/events/{id}/rsvp":      true,
	"/api/v1/events/{id}/rsvp/{id}": true,
	"/api/v1/users":                 true,
	"/api/v1/users/me":              true,
	"/api/v1/users/{username}":      true,
	"/api/v1/auth/login":            true,
}

// RouteLabel replaces identifier segments of path with "{id}" (and profile
// names with "{username}") and drops a trailing slash, so
// /api/v1/events/01J.../rsvp/ becomes /api/v1/events/{id}/rsvp. Anything
// that is not a served route is labelled "unmatched".
func RouteLabel(path string) string {
	segments := strings.Split(strings.TrimSuffix(path, "/"), "/")
	for i, segment := range segments {
		switch {
		case i > 0 && segments[i-1] == "users" && segment != "me" && segment != "":
			segments[i] = "{username}"
		case isIdentifier(segment):
			segments[i] = "{id}"
		}
	}
	route := strings.Join(segments, "/")
	if !knownRoutes[route] {
		return unmatchedRoute
	}
	return route
}

// isIdentifier matches ULIDs (26 Crockford base32 characters).
func isIdentifier(segment string) bool {
	if len(segment) != 26 {
		return false
	}
	for _, c := range strings.ToUpper(segment) {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') || c == 'I' || c == 'L' || c == 'O' || c == 'U' {
			return false
		}
	}
	return true
}
