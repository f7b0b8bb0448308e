package rebuild

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"gocatalog_sync/internal/catalog/models"
	"gocatalog_sync/metrics"
	"gocatalog_sync/pkg/logger"
)

// ErrIncompleteSnapshot is returned when at least one batch of a snapshot failed to
// write. The snapshot is discarded and the previous one stays current.
var ErrIncompleteSnapshot = errors.New("snapshot incomplete")

type Classifier interface {
	Category(p models.Product) models.Category
	SearchCategory(p models.Product) models.SearchCategory
}

type Config struct {
	ProductBatchSize    int
	CollectionBatchSize int
	TTL                 time.Duration
}

type categoryEntry struct {
	Category   models.Category `json:"category"`
	Title      string          `json:"title"`
	ProductIDs []string        `json:"product_ids"`
}

// Rebuilder turns one run's products and collections into a published cache snapshot.
type Rebuilder struct {
	store      Store
	classifier Classifier
	cfg        Config
	now        func() time.Time
	log        logger.Logger
}

func NewRebuilder(store Store, classifier Classifier, cfg Config, log logger.Logger) *Rebuilder {
	return &Rebuilder{
		store:      store,
		classifier: classifier,
		cfg:        cfg,
		now:        time.Now,
		log:        log.WithPrefix("[Rebuilder]"),
	}
}

func (r *Rebuilder) WithClock(now func() time.Time) *Rebuilder {
	r.now = now
	return r
}

func (r *Rebuilder) Rebuild(
	ctx context.Context,
	products []models.Product,
	collections []models.Collection,
	runMetrics *metrics.SyncMetrics,
) (models.Summary, error) {
	startedAt := r.now()
	products, duplicates := Distinct(products)
	if duplicates > 0 {
		r.log.Log("dropped %d duplicate product ids", duplicates)
		if runMetrics != nil {
			runMetrics.DuplicateProductsSeen.Add(int32(duplicates))
		}
	}

	ranks := GlobalRanks(products, collections)
	productRows := make([]models.ProductRow, 0, len(products))
	byCategory := make(map[models.Category][]string)
	var categoryOrder []models.Category
	for _, p := range products {
		row := r.productRow(p, ranks[p.ID])
		productRows = append(productRows, row)
		if _, ok := byCategory[row.Category]; !ok {
			categoryOrder = append(categoryOrder, row.Category)
		}
		byCategory[row.Category] = append(byCategory[row.Category], p.ID)
	}
	collectionRows := make([]models.CollectionRow, 0, len(collections))
	for _, c := range collections {
		collectionRows = append(collectionRows, collectionRow(c))
	}

	version := uuid.New()
	if err := r.store.CreateSnapshot(ctx, version, startedAt); err != nil {
		return models.Summary{}, errors.Wrap(err, "create snapshot")
	}
	r.log.Log("writing snapshot %s: %d products, %d collections", version, len(productRows), len(collectionRows))

	failed := 0
	total := 0
	for i, batch := range chunk(productRows, r.cfg.ProductBatchSize) {
		total++
		err := r.store.InsertProducts(ctx, version, batch)
		failed += r.logBatch("products", i, len(batch), err, runMetrics)
	}
	for i, batch := range chunk(collectionRows, r.cfg.CollectionBatchSize) {
		total++
		err := r.store.InsertCollections(ctx, version, batch)
		failed += r.logBatch("collections", i, len(batch), err, runMetrics)
	}

	syncedAt := r.now()
	summary := models.Summary{
		Version:         version,
		ProductCount:    len(productRows),
		CollectionCount: len(collectionRows),
		StartedAt:       startedAt,
		SyncedAt:        syncedAt,
		ExpiresAt:       syncedAt.Add(r.cfg.TTL),
	}

	entries, err := r.entries(summary, collectionRows, categoryOrder, byCategory)
	if err != nil {
		r.discard(ctx, version)
		return models.Summary{}, errors.Wrap(err, "build cache entries")
	}
	for i, batch := range chunk(entries, r.cfg.ProductBatchSize) {
		total++
		err := r.store.PutEntries(ctx, version, batch)
		failed += r.logBatch("kv", i, len(batch), err, runMetrics)
	}

	if failed > 0 {
		r.discard(ctx, version)
		return models.Summary{}, errors.Wrapf(ErrIncompleteSnapshot, "%d of %d batches failed", failed, total)
	}
	if err := r.store.Publish(ctx, summary); err != nil {
		r.discard(ctx, version)
		return models.Summary{}, errors.Wrap(err, "publish snapshot")
	}
	r.log.Log("published snapshot %s, expires at %s", version, summary.ExpiresAt.Format(time.RFC3339))
	return summary, nil
}

func (r *Rebuilder) productRow(p models.Product, rank int) models.ProductRow {
	category := r.classifier.Category(p)
	return models.ProductRow{
		ProductID:         p.ID,
		Title:             p.Title,
		Handle:            p.Handle,
		Price:             p.Price(),
		Image:             p.Image(),
		Category:          category,
		CategoryTitle:     category.Title(),
		Vendor:            p.Vendor,
		Description:       p.Description,
		ProductType:       p.ProductType,
		SearchCategory:    r.classifier.SearchCategory(p),
		Tags:              p.Tags,
		Variants:          p.Variants,
		CollectionHandles: p.CollectionHandles(),
		SortOrder:         rank,
	}
}

func collectionRow(c models.Collection) models.CollectionRow {
	return models.CollectionRow{
		CollectionID: c.ID,
		Handle:       c.Handle,
		Title:        c.Title,
		Description:  c.Description,
		ProductCount: len(c.Products),
		Products:     c.Products,
		Degraded:     c.Degraded,
	}
}

func (r *Rebuilder) entries(
	summary models.Summary,
	collections []models.CollectionRow,
	categoryOrder []models.Category,
	byCategory map[models.Category][]string,
) ([]models.CacheEntry, error) {
	entries := make([]models.CacheEntry, 0, len(collections)+len(categoryOrder)+1)
	add := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return errors.Wrapf(err, "marshal %s", key)
		}
		entries = append(entries, models.CacheEntry{Key: key, Value: raw, ExpiresAt: summary.ExpiresAt})
		return nil
	}

	if err := add(SummaryKey, summary); err != nil {
		return nil, err
	}
	for _, c := range collections {
		if err := add(CollectionKeyPrefix+c.Handle, c); err != nil {
			return nil, err
		}
	}
	for _, category := range categoryOrder {
		value := categoryEntry{Category: category, Title: category.Title(), ProductIDs: byCategory[category]}
		if err := add(CategoryKeyPrefix+string(category), value); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (r *Rebuilder) logBatch(table string, index, size int, err error, runMetrics *metrics.SyncMetrics) int {
	if err == nil {
		r.log.Log("%s batch %d: wrote %d rows", table, index+1, size)
		return 0
	}
	r.log.Log("%s batch %d: failed to write %d rows: %s", table, index+1, size, err)
	metrics.RecordBatchFailure(table)
	if runMetrics != nil {
		runMetrics.FailedBatches.Add(1)
	}
	return 1
}

func (r *Rebuilder) discard(ctx context.Context, version uuid.UUID) {
	// The run is already failing; a cancelled ctx must not keep the orphan around.
	if err := r.store.Discard(context.WithoutCancel(ctx), version); err != nil {
		r.log.Log("discard snapshot %s: %s", version, err)
	}
}

func chunk[T any](rows []T, size int) [][]T {
	if size <= 0 {
		size = len(rows)
	}
	var out [][]T
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
