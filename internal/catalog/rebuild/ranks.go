package rebuild

import "gocatalog_sync/internal/catalog/models"

// GlobalRanks maps each product id to the rank given by the first collection, in the
// given order, that lists the product. Products without such a collection are absent
// from the result and rank 0.
func GlobalRanks(products []models.Product, collections []models.Collection) map[string]int {
	wanted := make(map[string]struct{}, len(products))
	for _, p := range products {
		wanted[p.ID] = struct{}{}
	}

	ranks := make(map[string]int, len(products))
	for _, c := range collections {
		for _, entry := range c.Products {
			if _, ok := wanted[entry.ProductID]; !ok {
				continue
			}
			if _, ranked := ranks[entry.ProductID]; !ranked {
				ranks[entry.ProductID] = entry.Rank
			}
		}
	}
	return ranks
}

// Distinct drops repeated product ids, keeping the first occurrence.
func Distinct(products []models.Product) (unique []models.Product, duplicates int) {
	seen := make(map[string]struct{}, len(products))
	unique = make([]models.Product, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.ID]; ok {
			duplicates++
			continue
		}
		seen[p.ID] = struct{}{}
		unique = append(unique, p)
	}
	return unique, duplicates
}
