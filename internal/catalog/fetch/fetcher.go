package fetch

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"gocatalog_sync/internal/catalog/client"
	"gocatalog_sync/internal/catalog/models"
	"gocatalog_sync/metrics"
	"gocatalog_sync/pkg/logger"
)

type ProductPager interface {
	ProductsPage(ctx context.Context, first int, after string) (*client.ProductsPage, error)
}

type Config struct {
	PageSize int
	// MaxPages is a safety valve; the fetch ends there even if more pages exist.
	MaxPages     int
	PageInterval time.Duration
	Retry        client.RetryPolicy
}

// Fetcher reads the whole active catalog page by page.
type Fetcher struct {
	pager ProductPager
	cfg   Config
	sleep client.SleepFunc
	log   logger.Logger
}

func NewFetcher(pager ProductPager, cfg Config, log logger.Logger) *Fetcher {
	return &Fetcher{
		pager: pager,
		cfg:   cfg,
		sleep: client.Sleep,
		log:   log.WithPrefix("[Fetcher]"),
	}
}

// WithSleep replaces the function used for pacing and backoff pauses.
func (f *Fetcher) WithSleep(sleep client.SleepFunc) *Fetcher {
	f.sleep = sleep
	return f
}

// FetchAll returns the products of every page in page order. An error on any page
// that is not resolved by the retry policy aborts the fetch and no products are returned.
func (f *Fetcher) FetchAll(ctx context.Context, runMetrics *metrics.SyncMetrics) ([]models.Product, error) {
	var (
		products []models.Product
		cursor   string
	)

	for page := 1; page <= f.cfg.MaxPages; page++ {
		if page > 1 {
			if err := f.sleep(ctx, f.cfg.PageInterval); err != nil {
				return nil, errors.Wrapf(err, "wait before page %d", page)
			}
		}

		var result *client.ProductsPage
		onThrottle := func(attempt int, delay time.Duration) {
			f.log.Log("page %d throttled (attempt %d), backing off %s", page, attempt, delay)
			metrics.RecordThrottle(metrics.PhaseFetch)
			if runMetrics != nil {
				runMetrics.ThrottleEvents.Add(1)
			}
		}
		err := f.cfg.Retry.Do(ctx, f.sleep, onThrottle, func(ctx context.Context) error {
			var err error
			result, err = f.pager.ProductsPage(ctx, f.cfg.PageSize, cursor)
			return err
		})
		if err != nil {
			f.log.Log("page %d failed, aborting fetch: %s", page, err)
			return nil, errors.Wrapf(err, "fetch page %d", page)
		}

		products = append(products, result.Products...)
		if runMetrics != nil {
			runMetrics.PagesFetched.Add(1)
		}
		f.log.Log("page %d: %d products (total %d)", page, len(result.Products), len(products))

		if !result.PageInfo.HasNextPage {
			return products, nil
		}
		if result.PageInfo.EndCursor == "" {
			return nil, errors.Errorf("page %d reports a next page without an end cursor", page)
		}
		cursor = result.PageInfo.EndCursor
	}

	f.log.Log("page ceiling of %d reached with more pages available, stopping at %d products",
		f.cfg.MaxPages, len(products))
	return products, nil
}
