package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics records request counts and latencies per route
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics registers the HTTP metrics with registry
func NewHTTPMetrics(registry prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(registry)

	return &HTTPMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgekit_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgekit_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "badgekit_http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		}),
	}
}

// Middleware records metrics under the matched chi route pattern so that
// badge identifiers do not become label values
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		writer := newStatusRecorder(w)
		next.ServeHTTP(writer, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(writer.Status())).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
