package catalog

import (
	"database/sql"
	"fmt"

	"gocatalog_sync/migrations/infrastructure"
	"gocatalog_sync/pkg/dbconnect/migration"
)

const (
	SnapshotsMigration       = "catalog_cache.snapshots"
	CurrentSnapshotMigration = "catalog_cache.current_snapshot"
	ProductsMigration        = "catalog_cache.products"
	CollectionsMigration     = "catalog_cache.collections"
	KVMigration              = "catalog_cache.kv"
	CurrentViewsMigration    = "catalog_cache.current_views"
)

// All returns the cache migrations in the order they have to be applied.
func All() []migration.MigrationInterface {
	return []migration.MigrationInterface{
		&infrastructure.MigrationsSchema{},
		&CreateCatalogCacheSchema{},
		&CreateSnapshotsTable{},
		&CreateCurrentSnapshotTable{},
		&CreateProductsTable{},
		&CreateCollectionsTable{},
		&CreateKVTable{},
		&CreateCurrentViews{},
	}
}

func apply(db *sql.DB, name, query string) error {
	if ok, err := infrastructure.Applied(db, name); err != nil {
		return err
	} else if ok {
		return nil
	}
	return infrastructure.ExecuteAndMark(db, query, name)
}

type CreateCatalogCacheSchema struct{}

func (m *CreateCatalogCacheSchema) UpMigration(db *sql.DB) error {
	_, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS catalog_cache;`)
	if err != nil {
		return fmt.Errorf("failed to create schema catalog_cache: %w", err)
	}
	return nil
}

type CreateSnapshotsTable struct{}

func (m *CreateSnapshotsTable) UpMigration(db *sql.DB) error {
	return apply(db, SnapshotsMigration, `
	CREATE TABLE IF NOT EXISTS catalog_cache.snapshots (
		version UUID PRIMARY KEY,
		state VARCHAR(16) NOT NULL DEFAULT 'building', -- building | published
		started_at TIMESTAMP WITH TIME ZONE NOT NULL,
		synced_at TIMESTAMP WITH TIME ZONE,
		expires_at TIMESTAMP WITH TIME ZONE,
		product_count INT NOT NULL DEFAULT 0,
		collection_count INT NOT NULL DEFAULT 0
	);`)
}

type CreateCurrentSnapshotTable struct{}

func (m *CreateCurrentSnapshotTable) UpMigration(db *sql.DB) error {
	return apply(db, CurrentSnapshotMigration, `
	CREATE TABLE IF NOT EXISTS catalog_cache.current_snapshot (
		id BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
		version UUID NOT NULL REFERENCES catalog_cache.snapshots(version),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`)
}

type CreateProductsTable struct{}

func (m *CreateProductsTable) UpMigration(db *sql.DB) error {
	return apply(db, ProductsMigration, `
	CREATE TABLE IF NOT EXISTS catalog_cache.products (
		version UUID NOT NULL REFERENCES catalog_cache.snapshots(version) ON DELETE CASCADE,
		product_id VARCHAR(255) NOT NULL,
		title TEXT,
		handle VARCHAR(255),
		price NUMERIC(12, 2),
		image TEXT,
		category VARCHAR(32),
		category_title VARCHAR(64),
		vendor VARCHAR(255),
		description TEXT,
		product_type VARCHAR(255),
		search_category VARCHAR(64),
		tags TEXT[],
		variants JSONB,
		collection_handles TEXT[],
		sort_order INT NOT NULL DEFAULT 0,
		PRIMARY KEY (version, product_id)
	);
	CREATE INDEX IF NOT EXISTS catalog_products_category_idx
		ON catalog_cache.products(version, category, sort_order);`)
}

type CreateCollectionsTable struct{}

func (m *CreateCollectionsTable) UpMigration(db *sql.DB) error {
	return apply(db, CollectionsMigration, `
	CREATE TABLE IF NOT EXISTS catalog_cache.collections (
		version UUID NOT NULL REFERENCES catalog_cache.snapshots(version) ON DELETE CASCADE,
		collection_id VARCHAR(255) NOT NULL,
		handle VARCHAR(255) NOT NULL,
		title TEXT,
		description TEXT,
		product_count INT NOT NULL DEFAULT 0,
		products JSONB,
		degraded BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (version, collection_id),
		UNIQUE (version, handle)
	);`)
}

type CreateKVTable struct{}

func (m *CreateKVTable) UpMigration(db *sql.DB) error {
	return apply(db, KVMigration, `
	CREATE TABLE IF NOT EXISTS catalog_cache.kv (
		version UUID NOT NULL REFERENCES catalog_cache.snapshots(version) ON DELETE CASCADE,
		key VARCHAR(255) NOT NULL,
		value JSONB NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (version, key)
	);`)
}

// CreateCurrentViews exposes the published snapshot to storefront readers.
type CreateCurrentViews struct{}

func (m *CreateCurrentViews) UpMigration(db *sql.DB) error {
	return apply(db, CurrentViewsMigration, `
	CREATE OR REPLACE VIEW catalog_cache.current_products AS
		SELECT p.* FROM catalog_cache.products p
		JOIN catalog_cache.current_snapshot c ON c.version = p.version;
	CREATE OR REPLACE VIEW catalog_cache.current_collections AS
		SELECT col.* FROM catalog_cache.collections col
		JOIN catalog_cache.current_snapshot c ON c.version = col.version;
	CREATE OR REPLACE VIEW catalog_cache.current_kv AS
		SELECT kv.* FROM catalog_cache.kv kv
		JOIN catalog_cache.current_snapshot c ON c.version = kv.version;`)
}
