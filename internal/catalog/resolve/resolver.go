package resolve

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"

	"gocatalog_sync/internal/catalog/client"
	"gocatalog_sync/internal/catalog/models"
	"gocatalog_sync/metrics"
	"gocatalog_sync/pkg/logger"
)

type CollectionQuerier interface {
	CollectionByHandle(ctx context.Context, handle string, first int) (*models.Collection, error)
}

type Config struct {
	PageSize int
	Interval time.Duration
	Retry    client.RetryPolicy
	// Workers > 1 selects the Parallel strategy.
	Workers           int
	RequestsPerSecond float64
}

// Resolver obtains the canonical product order of every collection referenced by the catalog.
type Resolver struct {
	api      CollectionQuerier
	cfg      Config
	strategy Strategy
	sleep    client.SleepFunc
	log      logger.Logger
}

func NewResolver(api CollectionQuerier, cfg Config, log logger.Logger) *Resolver {
	return &Resolver{
		api:   api,
		cfg:   cfg,
		sleep: client.Sleep,
		log:   log.WithPrefix("[Resolver]"),
	}
}

func (r *Resolver) WithSleep(sleep client.SleepFunc) *Resolver {
	r.sleep = sleep
	return r
}

func (r *Resolver) WithStrategy(strategy Strategy) *Resolver {
	r.strategy = strategy
	return r
}

func (r *Resolver) strategyFor() Strategy {
	if r.strategy != nil {
		return r.strategy
	}
	if r.cfg.Workers > 1 {
		limit := rate.Inf
		if r.cfg.RequestsPerSecond > 0 {
			limit = rate.Limit(r.cfg.RequestsPerSecond)
		}
		return Parallel{Workers: r.cfg.Workers, Limiter: rate.NewLimiter(limit, 1)}
	}
	return Sequential{Interval: r.cfg.Interval, Sleep: r.sleep}
}

// Resolve returns exactly one collection per distinct handle referenced by products,
// in first-seen order. Collections that cannot be queried fall back to first-seen
// ordering; only cancellation of ctx makes Resolve fail.
func (r *Resolver) Resolve(ctx context.Context, products []models.Product, runMetrics *metrics.SyncMetrics) ([]models.Collection, error) {
	groups := GroupByHandle(products)
	r.log.Log("resolving %d collections", len(groups))

	collections, err := r.strategyFor().Run(ctx, groups, func(ctx context.Context, g Group) models.Collection {
		return r.resolveOne(ctx, g, runMetrics)
	})
	if err != nil {
		return nil, errors.Wrap(err, "resolve collections")
	}
	return collections, nil
}

func (r *Resolver) resolveOne(ctx context.Context, g Group, runMetrics *metrics.SyncMetrics) models.Collection {
	var collection *models.Collection
	onThrottle := func(attempt int, delay time.Duration) {
		r.log.Log("collection %q throttled (attempt %d), backing off %s", g.Handle, attempt, delay)
		metrics.RecordThrottle(metrics.PhaseResolve)
		if runMetrics != nil {
			runMetrics.ThrottleEvents.Add(1)
		}
	}
	err := r.cfg.Retry.Do(ctx, r.sleep, onThrottle, func(ctx context.Context) error {
		var err error
		collection, err = r.api.CollectionByHandle(ctx, g.Handle, r.cfg.PageSize)
		return err
	})
	if err != nil {
		r.log.Log("collection %q: %s; using first-seen order for %d products", g.Handle, err, len(g.Products))
		metrics.RecordCollectionResolved(metrics.ModeFallback)
		if runMetrics != nil {
			runMetrics.DegradedCollections.Add(1)
		}
		return Fallback(g)
	}

	resolved := *collection
	resolved.Handle = g.Handle
	if resolved.ID == "" {
		resolved.ID = g.Ref.ID
	}
	if resolved.Title == "" {
		resolved.Title = g.Ref.Title
	}
	metrics.RecordCollectionResolved(metrics.ModeCanonical)
	if runMetrics != nil {
		runMetrics.CanonicalCollections.Add(1)
	}
	return resolved
}
