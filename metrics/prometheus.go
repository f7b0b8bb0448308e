package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routeOther labels every path the admin API does not serve, keeping the label set bounded.
const routeOther = "other"

var adminRoutes = map[string]bool{
	"/api/sync":        true,
	"/api/sync/status": true,
	"/healthz":         true,
	"/metrics":         true,
}

var (
	adminRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_admin_requests_total",
			Help: "Admin API requests by route and status class.",
		},
		[]string{"method", "route", "status"},
	)
	// A triggered sync holds its request open for the whole run.
	adminRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_admin_request_duration_seconds",
			Help:    "Admin API request latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(adminRequestsTotal, adminRequestDuration)
}

// RecordRequest records a served admin request.
func RecordRequest(method, path string, statusCode int, duration time.Duration) {
	labels := []string{method, route(path), statusClass(statusCode)}
	adminRequestsTotal.WithLabelValues(labels...).Inc()
	adminRequestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
}

func route(path string) string {
	if adminRoutes[path] {
		return path
	}
	return routeOther
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

// MetricsHandler serves the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
