package coordinator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"

	"gocatalog_sync/internal/catalog/models"
	"gocatalog_sync/internal/catalog/storage"
	"gocatalog_sync/metrics"
	"gocatalog_sync/pkg/logger"
)

type Fetcher interface {
	FetchAll(ctx context.Context, runMetrics *metrics.SyncMetrics) ([]models.Product, error)
}

type Resolver interface {
	Resolve(ctx context.Context, products []models.Product, runMetrics *metrics.SyncMetrics) ([]models.Collection, error)
}

type Rebuilder interface {
	Rebuild(ctx context.Context, products []models.Product, collections []models.Collection, runMetrics *metrics.SyncMetrics) (models.Summary, error)
}

type SnapshotReader interface {
	Current(ctx context.Context) (models.Summary, error)
}

// ErrRunInProgress is returned by TryRun when single-flight is on and a run is active.
var ErrRunInProgress = errors.New("sync already running")

type Options struct {
	// SkipWhenFresh lets a run without forceRefresh return the current snapshot
	// while it has not expired.
	SkipWhenFresh bool
	SingleFlight  bool
}

// Result is what a caller learns about one sync run.
type Result struct {
	Success             bool
	Skipped             bool
	ProductsSynced      int
	CollectionsSynced   int
	DegradedCollections int
	CachedUntil         time.Time
	LastSync            time.Time
	Error               string
}

// Coordinator runs fetch, resolve, classify and rebuild strictly in that order.
type Coordinator struct {
	fetcher   Fetcher
	resolver  Resolver
	rebuilder Rebuilder
	snapshots SnapshotReader
	opts      Options
	running   atomic.Bool
	now       func() time.Time
	log       logger.Logger
}

func NewCoordinator(
	fetcher Fetcher,
	resolver Resolver,
	rebuilder Rebuilder,
	snapshots SnapshotReader,
	opts Options,
	log logger.Logger,
) *Coordinator {
	return &Coordinator{
		fetcher:   fetcher,
		resolver:  resolver,
		rebuilder: rebuilder,
		snapshots: snapshots,
		opts:      opts,
		now:       time.Now,
		log:       log.WithPrefix("[Coordinator]"),
	}
}

func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Running reports whether a run is in progress.
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// TryRun is Run guarded by the single-flight option.
func (c *Coordinator) TryRun(ctx context.Context, forceRefresh bool) (Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		if c.opts.SingleFlight {
			return Result{Error: ErrRunInProgress.Error()}, ErrRunInProgress
		}
		return c.Run(ctx, forceRefresh), nil
	}
	defer c.running.Store(false)
	return c.Run(ctx, forceRefresh), nil
}

// Run executes one sync. It never panics and never returns an error: failures are
// reported through Result.
func (c *Coordinator) Run(ctx context.Context, forceRefresh bool) (result Result) {
	start := time.Now()
	runMetrics := &metrics.SyncMetrics{}
	defer func() {
		if r := recover(); r != nil {
			c.log.Log("sync panicked: %v", r)
			result = Result{Error: fmt.Sprintf("panic: %v", r)}
		}
		metrics.RecordRun(outcome(result), time.Since(start), result.ProductsSynced, result.CollectionsSynced)
	}()

	if skipped, ok := c.skipIfFresh(ctx, forceRefresh); ok {
		return skipped
	}

	c.log.Log("sync started (forceRefresh=%t)", forceRefresh)
	products, err := c.fetcher.FetchAll(ctx, runMetrics)
	if err != nil {
		return c.fail("fetch", err)
	}
	c.log.Log("fetched %d products in %d pages", len(products), runMetrics.PagesFetched.Load())

	collections, err := c.resolver.Resolve(ctx, products, runMetrics)
	if err != nil {
		return c.fail("resolve", err)
	}
	c.log.Log("resolved %d collections (%d canonical, %d fallback)",
		len(collections), runMetrics.CanonicalCollections.Load(), runMetrics.DegradedCollections.Load())

	summary, err := c.rebuilder.Rebuild(ctx, products, collections, runMetrics)
	if err != nil {
		return c.fail("rebuild", err)
	}

	c.log.Log("sync finished in %s: %d products, %d collections, %d throttles",
		time.Since(start).Round(time.Millisecond), summary.ProductCount, summary.CollectionCount, runMetrics.ThrottleEvents.Load())
	return Result{
		Success:             true,
		ProductsSynced:      summary.ProductCount,
		CollectionsSynced:   summary.CollectionCount,
		DegradedCollections: int(runMetrics.DegradedCollections.Load()),
		CachedUntil:         summary.ExpiresAt,
		LastSync:            summary.SyncedAt,
	}
}

func (c *Coordinator) skipIfFresh(ctx context.Context, forceRefresh bool) (Result, bool) {
	if forceRefresh || !c.opts.SkipWhenFresh || c.snapshots == nil {
		return Result{}, false
	}
	current, err := c.snapshots.Current(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoSnapshot) {
			c.log.Log("reading current snapshot: %s", err)
		}
		return Result{}, false
	}
	if !current.Fresh(c.now()) {
		return Result{}, false
	}
	c.log.Log("snapshot %s is fresh until %s, skipping", current.Version, current.ExpiresAt.Format(time.RFC3339))
	return Result{
		Success:           true,
		Skipped:           true,
		ProductsSynced:    current.ProductCount,
		CollectionsSynced: current.CollectionCount,
		CachedUntil:       current.ExpiresAt,
		LastSync:          current.SyncedAt,
	}, true
}

func (c *Coordinator) fail(phase string, err error) Result {
	err = errors.Wrap(err, phase)
	c.log.Log("sync failed: %s", err)
	return Result{Error: err.Error()}
}

func outcome(r Result) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Success:
		return "success"
	}
	return "failure"
}
