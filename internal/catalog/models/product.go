package models

import "github.com/shopspring/decimal"

// Product is one active product of the external catalog. ID is unique across a fetch.
type Product struct {
	ID          string
	Title       string
	Handle      string
	Description string
	ProductType string
	Vendor      string
	Tags        []string
	Images      []string
	Variants    []Variant
	Collections []CollectionRef
}

type Variant struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

// CollectionRef is a product's declared membership in a collection.
type CollectionRef struct {
	ID     string
	Title  string
	Handle string
}

// Price is the price of the first variant, zero when the product has none.
func (p Product) Price() decimal.Decimal {
	if len(p.Variants) == 0 {
		return decimal.Zero
	}
	return p.Variants[0].Price
}

// Image is the first image URL or "".
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func (p Product) CollectionHandles() []string {
	handles := make([]string, 0, len(p.Collections))
	for _, c := range p.Collections {
		handles = append(handles, c.Handle)
	}
	return handles
}
