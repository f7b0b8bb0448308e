package models

import "github.com/shopspring/decimal"

// Collection is a curated product grouping with ranks 1..N in Products.
// Degraded collections were ordered by first-seen position in the catalog fetch
// instead of the platform's canonical order.
type Collection struct {
	ID          string
	Handle      string
	Title       string
	Description string
	Products    []CollectionEntry
	Degraded    bool
}

type CollectionEntry struct {
	ProductID string          `json:"id"`
	Title     string          `json:"title"`
	Handle    string          `json:"handle"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Rank      int             `json:"sort_order"`
}

// RankOf returns the rank of productID in c, or 0 when c does not list it.
func (c Collection) RankOf(productID string) int {
	for _, entry := range c.Products {
		if entry.ProductID == productID {
			return entry.Rank
		}
	}
	return 0
}
