package metrics

import "sync/atomic"

// SyncMetrics counts what happened during one sync run.
type SyncMetrics struct {
	PagesFetched          atomic.Int32
	ThrottleEvents        atomic.Int32
	CanonicalCollections  atomic.Int32
	DegradedCollections   atomic.Int32
	FailedBatches         atomic.Int32
	DuplicateProductsSeen atomic.Int32
}
