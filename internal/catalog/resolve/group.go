package resolve

import "gocatalog_sync/internal/catalog/models"

// Group is a collection handle with the products that declared membership in it,
// in the order they were first seen in the catalog fetch.
type Group struct {
	Handle   string
	Ref      models.CollectionRef
	Products []models.Product
}

// GroupByHandle groups products by collection handle. Groups come out in the order
// their handle was first seen; a product appears at most once per group.
func GroupByHandle(products []models.Product) []Group {
	var groups []Group
	index := make(map[string]int)
	members := make(map[string]map[string]struct{})

	for _, product := range products {
		for _, ref := range product.Collections {
			if ref.Handle == "" {
				continue
			}
			i, ok := index[ref.Handle]
			if !ok {
				i = len(groups)
				index[ref.Handle] = i
				members[ref.Handle] = make(map[string]struct{})
				groups = append(groups, Group{Handle: ref.Handle, Ref: ref})
			}
			if _, seen := members[ref.Handle][product.ID]; seen {
				continue
			}
			members[ref.Handle][product.ID] = struct{}{}
			groups[i].Products = append(groups[i].Products, product)
		}
	}
	return groups
}

// Fallback builds a degraded collection from the group, ranked by first-seen order.
func Fallback(g Group) models.Collection {
	collection := models.Collection{
		ID:       g.Ref.ID,
		Handle:   g.Handle,
		Title:    g.Ref.Title,
		Degraded: true,
		Products: make([]models.CollectionEntry, 0, len(g.Products)),
	}
	for i, product := range g.Products {
		collection.Products = append(collection.Products, models.CollectionEntry{
			ProductID: product.ID,
			Title:     product.Title,
			Handle:    product.Handle,
			Image:     product.Image(),
			Price:     product.Price(),
			Rank:      i + 1,
		})
	}
	return collection
}
