package classify

import (
	"gocatalog_sync/config/values"
	"gocatalog_sync/internal/catalog/models"
)

// Classifier derives the coarse category and the search category of a product.
// The two are computed independently and are allowed to disagree.
type Classifier struct {
	categoryRules []Rule
	searchExact   map[string]string
	searchRules   []Rule
}

// NewClassifier builds a classifier from the built-in tables extended by extra.
// Configured rules take precedence over the built-in ones.
func NewClassifier(extra values.ClassificationValues) *Classifier {
	exact := make(map[string]string, len(DefaultSearchCategoryExact)+len(extra.SearchCategoryExact))
	for k, v := range DefaultSearchCategoryExact {
		exact[k] = v
	}
	for k, v := range extra.SearchCategoryExact {
		exact[Normalize(k)] = Normalize(v)
	}
	return &Classifier{
		categoryRules: rulesFrom(extra.CategoryRules, DefaultCategoryRules),
		searchExact:   exact,
		searchRules:   rulesFrom(extra.SearchCategoryRules, DefaultSearchCategoryRules),
	}
}

// Category matches collection handles first, in membership order, and falls back to
// the declared product type.
func (c *Classifier) Category(p models.Product) models.Category {
	for _, handle := range p.CollectionHandles() {
		if category, ok := match(c.categoryRules, Normalize(handle)); ok {
			return models.Category(category)
		}
	}
	if category, ok := match(c.categoryRules, Normalize(p.ProductType)); ok {
		return models.Category(category)
	}
	return models.CategoryOther
}

func (c *Classifier) SearchCategory(p models.Product) models.SearchCategory {
	productType := Normalize(p.ProductType)
	if productType == "" {
		return models.SearchCategoryOther
	}
	if category, ok := c.searchExact[productType]; ok {
		return models.SearchCategory(category)
	}
	if category, ok := match(c.searchRules, productType); ok {
		return models.SearchCategory(category)
	}
	return models.SearchCategoryOther
}

func match(rules []Rule, normalized string) (string, bool) {
	if normalized == "" {
		return "", false
	}
	for _, rule := range rules {
		if rule.Matches(normalized) {
			return rule.Category, true
		}
	}
	return "", false
}
