package client

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"gocatalog_sync/internal/catalog/models"
	"gocatalog_sync/pkg/business/service"
)

const productsQuery = `query CatalogProducts($first: Int!, $after: String) {
  products(first: $first, after: $after, query: "status:active") {
    pageInfo { hasNextPage endCursor }
    edges {
      node {
        id title handle description productType vendor tags
        images(first: 5) { edges { node { url } } }
        variants(first: 10) { edges { node { id title price availableForSale } } }
        collections(first: 20) { edges { node { id title handle } } }
      }
    }
  }
}`

const collectionQuery = `query CollectionProducts($handle: String!, $first: Int!) {
  collectionByHandle(handle: $handle) {
    id handle title description
    products(first: $first, sortKey: COLLECTION_DEFAULT) {
      edges {
        node {
          id title handle
          images(first: 1) { edges { node { url } } }
          variants(first: 1) { edges { node { price } } }
        }
      }
    }
  }
}`

// maxDescriptionLength bounds cached descriptions, in runes.
const maxDescriptionLength = 5000

type edge[T any] struct {
	Node T `json:"node"`
}

type connection[T any] struct {
	Edges []edge[T] `json:"edges"`
}

func (c connection[T]) nodes() []T {
	nodes := make([]T, 0, len(c.Edges))
	for _, edge := range c.Edges {
		nodes = append(nodes, edge.Node)
	}
	return nodes
}

type imageNode struct {
	URL string `json:"url"`
}

type variantNode struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Price            decimal.Decimal `json:"price"`
	AvailableForSale bool            `json:"availableForSale"`
}

type collectionRefNode struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

type productNode struct {
	ID          string                        `json:"id"`
	Title       string                        `json:"title"`
	Handle      string                        `json:"handle"`
	Description string                        `json:"description"`
	ProductType string                        `json:"productType"`
	Vendor      string                        `json:"vendor"`
	Tags        []string                      `json:"tags"`
	Images      connection[imageNode]         `json:"images"`
	Variants    connection[variantNode]       `json:"variants"`
	Collections connection[collectionRefNode] `json:"collections"`
}

type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type productsData struct {
	Products struct {
		PageInfo PageInfo            `json:"pageInfo"`
		Edges    []edge[productNode] `json:"edges"`
	} `json:"products"`
}

type collectionData struct {
	Collection *struct {
		ID          string                  `json:"id"`
		Handle      string                  `json:"handle"`
		Title       string                  `json:"title"`
		Description string                  `json:"description"`
		Products    connection[productNode] `json:"products"`
	} `json:"collectionByHandle"`
}

// ProductsPage is one page of the active catalog.
type ProductsPage struct {
	Products []models.Product
	PageInfo PageInfo
}

// ProductsPage requests first products after cursor; an empty cursor starts from the beginning.
func (c *Client) ProductsPage(ctx context.Context, first int, after string) (*ProductsPage, error) {
	variables := map[string]any{"first": first}
	if after != "" {
		variables["after"] = after
	}
	data, err := c.Send(ctx, productsQuery, variables)
	if err != nil {
		return nil, err
	}

	var decoded productsData
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, errors.Wrap(err, "decode products page")
	}

	text := service.NewTextService()
	page := &ProductsPage{
		Products: make([]models.Product, 0, len(decoded.Products.Edges)),
		PageInfo: decoded.Products.PageInfo,
	}
	for _, edge := range decoded.Products.Edges {
		page.Products = append(page.Products, edge.Node.toProduct(text))
	}
	return page, nil
}

// CollectionByHandle returns the collection with up to first products in canonical
// order, ranked from 1. ErrNotFound is returned for an unknown handle.
func (c *Client) CollectionByHandle(ctx context.Context, handle string, first int) (*models.Collection, error) {
	data, err := c.Send(ctx, collectionQuery, map[string]any{"handle": handle, "first": first})
	if err != nil {
		return nil, err
	}

	var decoded collectionData
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, errors.Wrap(err, "decode collection")
	}
	if decoded.Collection == nil {
		return nil, errors.Wrapf(ErrNotFound, "collection %q", handle)
	}

	col := decoded.Collection
	collection := &models.Collection{
		ID:          col.ID,
		Handle:      col.Handle,
		Title:       col.Title,
		Description: col.Description,
	}
	for i, node := range col.Products.nodes() {
		entry := models.CollectionEntry{
			ProductID: node.ID,
			Title:     node.Title,
			Handle:    node.Handle,
			Rank:      i + 1,
		}
		if images := node.Images.nodes(); len(images) > 0 {
			entry.Image = images[0].URL
		}
		if variants := node.Variants.nodes(); len(variants) > 0 {
			entry.Price = variants[0].Price
		}
		collection.Products = append(collection.Products, entry)
	}
	return collection, nil
}

func (n productNode) toProduct(text service.ITextService) models.Product {
	product := models.Product{
		ID:          n.ID,
		Title:       n.Title,
		Handle:      n.Handle,
		Description: text.Clean(n.Description, maxDescriptionLength),
		ProductType: n.ProductType,
		Vendor:      n.Vendor,
		Tags:        n.Tags,
	}
	for _, image := range n.Images.nodes() {
		product.Images = append(product.Images, image.URL)
	}
	for _, v := range n.Variants.nodes() {
		product.Variants = append(product.Variants, models.Variant{
			ID:        v.ID,
			Title:     v.Title,
			Price:     v.Price,
			Available: v.AvailableForSale,
		})
	}
	for _, ref := range n.Collections.nodes() {
		product.Collections = append(product.Collections, models.CollectionRef{
			ID:     ref.ID,
			Title:  ref.Title,
			Handle: ref.Handle,
		})
	}
	return product
}
