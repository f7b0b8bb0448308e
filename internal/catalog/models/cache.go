package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRow is one product of a cache snapshot.
type ProductRow struct {
	ProductID         string          `json:"id"`
	Title             string          `json:"title"`
	Handle            string          `json:"handle"`
	Price             decimal.Decimal `json:"price"`
	Image             string          `json:"image"`
	Category          Category        `json:"category"`
	CategoryTitle     string          `json:"category_title"`
	Vendor            string          `json:"vendor"`
	Description       string          `json:"description"`
	ProductType       string          `json:"product_type"`
	SearchCategory    SearchCategory  `json:"search_category"`
	Tags              []string        `json:"tags"`
	Variants          []Variant       `json:"variants"`
	CollectionHandles []string        `json:"collection_handles"`
	SortOrder         int             `json:"sort_order"`
}

// CollectionRow is one collection of a cache snapshot.
type CollectionRow struct {
	CollectionID string            `json:"id"`
	Handle       string            `json:"handle"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	ProductCount int               `json:"product_count"`
	Products     []CollectionEntry `json:"products"`
	Degraded     bool              `json:"degraded"`
}

// CacheEntry is a generic key/value cache entry.
type CacheEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Summary describes a published snapshot.
type Summary struct {
	Version         uuid.UUID `json:"version"`
	ProductCount    int       `json:"product_count"`
	CollectionCount int       `json:"collection_count"`
	StartedAt       time.Time `json:"started_at"`
	SyncedAt        time.Time `json:"synced_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func (s Summary) Fresh(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
