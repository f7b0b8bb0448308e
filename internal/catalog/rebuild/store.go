package rebuild

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gocatalog_sync/internal/catalog/models"
)

// Store persists versioned cache snapshots. Rows written under a version stay invisible
// to readers until Publish makes that version current.
type Store interface {
	CreateSnapshot(ctx context.Context, version uuid.UUID, startedAt time.Time) error
	InsertProducts(ctx context.Context, version uuid.UUID, rows []models.ProductRow) error
	InsertCollections(ctx context.Context, version uuid.UUID, rows []models.CollectionRow) error
	PutEntries(ctx context.Context, version uuid.UUID, entries []models.CacheEntry) error
	// Publish makes summary.Version current and prunes older snapshots.
	Publish(ctx context.Context, summary models.Summary) error
	Discard(ctx context.Context, version uuid.UUID) error
	Current(ctx context.Context) (models.Summary, error)
}

const (
	SummaryKey          = "catalog:summary"
	CollectionKeyPrefix = "catalog:collection:"
	CategoryKeyPrefix   = "catalog:category:"
)
