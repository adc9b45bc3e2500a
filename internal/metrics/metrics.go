package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vht"

// Outbound API client metrics (recorded by transport.Client).
var (
	ClientRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_requests_total",
		Help:      "Total backend API requests issued, by outcome.",
	}, []string{"path", "outcome"})

	ClientRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "client_request_duration_seconds",
		Help:      "Backend API request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path"})
)

// Mock backend metrics (served handler side).
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mock_http_requests_total",
		Help:      "Total requests answered by the mock backend.",
	}, []string{"method", "path_pattern", "status_code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mock_http_request_duration_seconds",
		Help:      "Mock backend request duration in seconds, simulated delay included.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "path_pattern"})

	MockUploadBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mock_upload_bytes",
		Help:      "Size of video files received by the mock backend.",
		Buckets:   prometheus.ExponentialBuckets(1<<10, 10, 7), // 1KB → 1GB
	})
)

func init() {
	prometheus.MustRegister(
		ClientRequestsTotal,
		ClientRequestDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MockUploadBytes,
	)
}

// ObserveClientRequest records one outbound request.
func ObserveClientRequest(path, outcome string, dur time.Duration) {
	ClientRequestsTotal.WithLabelValues(path, outcome).Inc()
	ClientRequestDuration.WithLabelValues(path).Observe(dur.Seconds())
}

// InstrumentHandler returns middleware that records HTTP request metrics.
// It uses chi's route pattern as the path label to avoid cardinality explosion.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(sw, r)

		pattern := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			pattern = rctx.RoutePattern()
		}
		if pattern == "" {
			pattern = "unknown"
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
