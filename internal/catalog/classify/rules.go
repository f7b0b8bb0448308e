package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"gocatalog_sync/config/values"
	"gocatalog_sync/internal/catalog/models"
)

// Rule assigns Category to any input containing one of Keywords. Words listed in
// Except are blanked out first, so "gin" does not match "ginger" or "original".
type Rule struct {
	Keywords []string
	Except   []string
	Category string
}

// Matches reports whether a normalized input contains one of the rule keywords.
func (r Rule) Matches(normalized string) bool {
	for _, word := range r.Except {
		if word != "" {
			normalized = strings.ReplaceAll(normalized, word, " ")
		}
	}
	for _, keyword := range r.Keywords {
		if keyword != "" && strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

var spiritTerms = []string{
	"spirit", "whiskey", "whisky", "vodka", "rum", "gin", "tequila", "bourbon",
	"scotch", "brandy", "cognac", "liqueur", "mezcal",
}

// spiritLookalikes contain "gin" or "rum" without naming a spirit.
var spiritLookalikes = []string{
	"ginger", "virgin", "original", "origin", "engine", "imagine", "margin",
	"drum", "crumb", "forum", "serum",
}

var gingerMixers = []string{"ginger ale", "ginger-ale", "ginger beer", "ginger-beer"}

// DefaultCategoryRules are evaluated in order; the first matching rule wins, so a
// "ginger-beer" handle is a mixer rather than beer.
var DefaultCategoryRules = []Rule{
	{Keywords: gingerMixers, Category: string(models.CategoryMixers)},
	{Keywords: []string{"beer"}, Category: string(models.CategoryBeer)},
	{Keywords: []string{"wine", "champagne"}, Category: string(models.CategoryWine)},
	{Keywords: spiritTerms, Except: spiritLookalikes, Category: string(models.CategorySpirits)},
	{Keywords: []string{"cocktail"}, Category: string(models.CategoryCocktails)},
	{Keywords: []string{"mix", "soda", "juice"}, Category: string(models.CategoryMixers)},
	{Keywords: []string{"party", "supplies"}, Category: string(models.CategoryParty)},
}

var DefaultSearchCategoryExact = map[string]string{
	"beer":           "beer",
	"craft beer":     "beer",
	"cider":          "beer",
	"wine":           "wine",
	"red wine":       "wine",
	"white wine":     "wine",
	"rose":           "wine",
	"champagne":      "wine",
	"sparkling wine": "wine",
	"spirits":        "spirits",
	"liquor":         "spirits",
	"hard seltzer":   "seltzer",
	"seltzer":        "seltzer",
	"cocktail":       "cocktails",
	"cocktails":      "cocktails",
	"mixer":          "mixers",
	"mixers":         "mixers",
	"non-alcoholic":  "non-alcoholic",
	"party supplies": "party",
}

var DefaultSearchCategoryRules = []Rule{
	{Keywords: gingerMixers, Category: "mixers"},
	{Keywords: []string{"seltzer"}, Category: "seltzer"},
	{Keywords: []string{"non-alcoholic", "alcohol-free", "mocktail"}, Category: "non-alcoholic"},
	{Keywords: []string{"beer", "lager", "stout", "ipa", "cider"}, Category: "beer"},
	{Keywords: []string{"wine", "champagne", "prosecco"}, Category: "wine"},
	{Keywords: []string{"cocktail", "ready to drink"}, Category: "cocktails"},
	{Keywords: spiritTerms, Except: spiritLookalikes, Category: "spirits"},
	{Keywords: []string{"mix", "soda", "juice", "tonic"}, Category: "mixers"},
	{Keywords: []string{"party", "supplies"}, Category: "party"},
}

// Normalize folds case, strips diacritics and surrounding space so that "Rosé " and
// "ROSE" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(cases.Fold().String(out))
}

func rulesFrom(extra []values.KeywordRule, defaults []Rule) []Rule {
	rules := make([]Rule, 0, len(extra)+len(defaults))
	for _, r := range extra {
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			keywords = append(keywords, Normalize(k))
		}
		rules = append(rules, Rule{Keywords: keywords, Category: Normalize(r.Category)})
	}
	return append(rules, defaults...)
}
