package models

type Category string

const (
	CategoryBeer      Category = "beer"
	CategoryWine      Category = "wine"
	CategorySpirits   Category = "spirits"
	CategoryCocktails Category = "cocktails"
	CategoryMixers    Category = "mixers"
	CategoryParty     Category = "party"
	CategoryOther     Category = "other"
)

var categoryTitles = map[Category]string{
	CategoryBeer:      "Beer",
	CategoryWine:      "Wine & Champagne",
	CategorySpirits:   "Spirits",
	CategoryCocktails: "Cocktails",
	CategoryMixers:    "Mixers",
	CategoryParty:     "Party Supplies",
	CategoryOther:     "Other",
}

// Title is the display title stored next to the category in the cache.
func (c Category) Title() string {
	if title, ok := categoryTitles[c]; ok {
		return title
	}
	return string(c)
}

// SearchCategory is the normalized category storefront search filters on.
type SearchCategory string

const SearchCategoryOther SearchCategory = "other"
