package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gocatalog_sync/internal/catalog/models"
)

// Schema holds every cache table and the current_* views storefronts read.
const Schema = "catalog_cache"

// Pool is the part of *pgxpool.Pool the cache writer uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// CacheRepository writes snapshots through a pgx pool. Each batch is sent as one
// pgx.Batch, so a batch either lands completely or not at all.
type CacheRepository struct {
	pool Pool
}

func NewCacheRepository(pool Pool) *CacheRepository {
	return &CacheRepository{pool: pool}
}

func (r *CacheRepository) CreateSnapshot(ctx context.Context, version uuid.UUID, startedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO `+Schema+`.snapshots (version, state, started_at) VALUES ($1, $2, $3)`,
		version, stateBuilding, startedAt)
	if err != nil {
		return errors.Wrapf(err, "insert snapshot %s", version)
	}
	return nil
}

func (r *CacheRepository) InsertProducts(ctx context.Context, version uuid.UUID, rows []models.ProductRow) error {
	b := &pgx.Batch{}
	for _, row := range rows {
		variants, err := json.Marshal(row.Variants)
		if err != nil {
			return errors.Wrapf(err, "marshal variants of %s", row.ProductID)
		}
		b.Queue(
			`INSERT INTO `+Schema+`.products
			(version, product_id, title, handle, price, image, category, category_title, vendor,
			 description, product_type, search_category, tags, variants, collection_handles, sort_order)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			version, row.ProductID, row.Title, row.Handle, row.Price.String(), row.Image,
			string(row.Category), row.CategoryTitle, row.Vendor, row.Description, row.ProductType,
			string(row.SearchCategory), nonNil(row.Tags), variants, nonNil(row.CollectionHandles), row.SortOrder,
		)
	}
	return r.send(ctx, b)
}

func (r *CacheRepository) InsertCollections(ctx context.Context, version uuid.UUID, rows []models.CollectionRow) error {
	b := &pgx.Batch{}
	for _, row := range rows {
		products, err := json.Marshal(row.Products)
		if err != nil {
			return errors.Wrapf(err, "marshal products of %s", row.Handle)
		}
		b.Queue(
			`INSERT INTO `+Schema+`.collections
			(version, collection_id, handle, title, description, product_count, products, degraded)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			version, row.CollectionID, row.Handle, row.Title, row.Description, row.ProductCount, products, row.Degraded,
		)
	}
	return r.send(ctx, b)
}

func (r *CacheRepository) PutEntries(ctx context.Context, version uuid.UUID, entries []models.CacheEntry) error {
	b := &pgx.Batch{}
	for _, entry := range entries {
		b.Queue(
			`INSERT INTO `+Schema+`.kv (version, key, value, expires_at) VALUES ($1,$2,$3,$4)
			ON CONFLICT (version, key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
			version, entry.Key, []byte(entry.Value), entry.ExpiresAt,
		)
	}
	return r.send(ctx, b)
}

func (r *CacheRepository) send(ctx context.Context, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	br := r.pool.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrapf(err, "batch statement %d", i)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrap(err, "close batch")
	}
	return nil
}

// Publish flips the current pointer to summary.Version inside one transaction and
// drops every snapshot that can no longer become current.
func (r *CacheRepository) Publish(ctx context.Context, summary models.Summary) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin publish")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `LOCK TABLE `+Schema+`.current_snapshot IN EXCLUSIVE MODE`); err != nil {
		return errors.Wrap(err, "lock current snapshot")
	}

	var startedAt time.Time
	err = tx.QueryRow(ctx,
		`SELECT started_at FROM `+Schema+`.snapshots WHERE version = $1 AND state = $2`,
		summary.Version, stateBuilding).Scan(&startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrapf(ErrUnknownSnapshot, "%s", summary.Version)
	}
	if err != nil {
		return errors.Wrap(err, "load snapshot")
	}

	var currentStarted time.Time
	err = tx.QueryRow(ctx,
		`SELECT s.started_at FROM `+Schema+`.current_snapshot c
		JOIN `+Schema+`.snapshots s ON s.version = c.version`).Scan(&currentStarted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return errors.Wrap(err, "load current snapshot")
	case currentStarted.After(startedAt):
		return errors.Wrapf(ErrSuperseded, "current snapshot started at %s", currentStarted.Format(time.RFC3339))
	}

	if _, err := tx.Exec(ctx,
		`UPDATE `+Schema+`.snapshots
		SET state = $2, synced_at = $3, expires_at = $4, product_count = $5, collection_count = $6
		WHERE version = $1`,
		summary.Version, statePublished, summary.SyncedAt, summary.ExpiresAt,
		summary.ProductCount, summary.CollectionCount); err != nil {
		return errors.Wrap(err, "mark snapshot published")
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+Schema+`.current_snapshot (id, version, updated_at) VALUES (TRUE, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`,
		summary.Version); err != nil {
		return errors.Wrap(err, "move current snapshot")
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM `+Schema+`.snapshots
		WHERE version <> $1 AND (state <> $2 OR started_at < $3)`,
		summary.Version, stateBuilding, startedAt); err != nil {
		return errors.Wrap(err, "prune snapshots")
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit publish")
	}
	return nil
}

func (r *CacheRepository) Discard(ctx context.Context, version uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM `+Schema+`.snapshots WHERE version = $1 AND state = $2`,
		version, stateBuilding)
	if err != nil {
		return errors.Wrapf(err, "discard snapshot %s", version)
	}
	return nil
}

// SnapshotRepository reads the published snapshot through database/sql.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Current(ctx context.Context) (models.Summary, error) {
	var s models.Summary
	err := r.db.QueryRowContext(ctx,
		`SELECT s.version, s.product_count, s.collection_count, s.started_at, s.synced_at, s.expires_at
		FROM `+Schema+`.current_snapshot c
		JOIN `+Schema+`.snapshots s ON s.version = c.version`,
	).Scan(&s.Version, &s.ProductCount, &s.CollectionCount, &s.StartedAt, &s.SyncedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Summary{}, ErrNoSnapshot
	}
	if err != nil {
		return models.Summary{}, errors.Wrap(err, "query current snapshot")
	}
	return s, nil
}

// Entry returns the value stored under key in the current snapshot.
func (r *SnapshotRepository) Entry(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM `+Schema+`.current_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query cache entry %s", key)
	}
	return value, nil
}

// PostgresStore combines the pgx writer with the database/sql reader.
type PostgresStore struct {
	*CacheRepository
	*SnapshotRepository
}

func NewPostgresStore(pool *pgxpool.Pool, db *sql.DB) *PostgresStore {
	return &PostgresStore{
		CacheRepository:    NewCacheRepository(pool),
		SnapshotRepository: NewSnapshotRepository(db),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
