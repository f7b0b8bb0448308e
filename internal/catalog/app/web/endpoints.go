package web

import (
	"net/http"

	"gocatalog_sync/internal/catalog/app/web/handlers"
	"gocatalog_sync/metrics"
	"gocatalog_sync/pkg/middleware"
)

// SetupRoutes registers the sync endpoints and /metrics on a new mux.
func SetupRoutes(syncHandler *handlers.SyncHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync", syncHandler.TriggerHandler)
	mux.HandleFunc("/api/sync/status", syncHandler.StatusHandler)
	mux.HandleFunc("/healthz", syncHandler.HealthHandler)
	mux.Handle("/metrics", metrics.MetricsHandler())
	return middleware.PrometheusMiddleware(mux)
}
