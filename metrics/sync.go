package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	PhaseFetch   = "fetch"
	PhaseResolve = "resolve"

	ModeCanonical = "canonical"
	ModeFallback  = "fallback"
)

var (
	syncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_runs_total",
			Help: "Catalog sync runs by result.",
		},
		[]string{"result"},
	)
	syncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_sync_duration_seconds",
			Help:    "Wall time of catalog sync runs.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
	)
	throttleEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_throttle_events_total",
			Help: "Throttle signals received from the catalog API.",
		},
		[]string{"phase"},
	)
	collectionsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_collections_resolved_total",
			Help: "Collections resolved by ordering mode.",
		},
		[]string{"mode"},
	)
	cacheBatchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_batch_failures_total",
			Help: "Failed cache write batches by table.",
		},
		[]string{"table"},
	)
	productsSynced = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_products_synced",
		Help: "Products in the last published snapshot.",
	})
	collectionsSynced = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_collections_synced",
		Help: "Collections in the last published snapshot.",
	})
)

func init() {
	prometheus.MustRegister(
		syncRunsTotal,
		syncDuration,
		throttleEventsTotal,
		collectionsResolvedTotal,
		cacheBatchFailuresTotal,
		productsSynced,
		collectionsSynced,
	)
}

func RecordThrottle(phase string) {
	throttleEventsTotal.WithLabelValues(phase).Inc()
}

func RecordCollectionResolved(mode string) {
	collectionsResolvedTotal.WithLabelValues(mode).Inc()
}

func RecordBatchFailure(table string) {
	cacheBatchFailuresTotal.WithLabelValues(table).Inc()
}

// RecordRun records the outcome of a sync run. Counts are only published for successful runs.
func RecordRun(result string, duration time.Duration, products, collections int) {
	syncRunsTotal.WithLabelValues(result).Inc()
	syncDuration.Observe(duration.Seconds())
	if result == "success" {
		productsSynced.Set(float64(products))
		collectionsSynced.Set(float64(collections))
	}
}
