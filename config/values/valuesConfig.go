package values

// KeywordRule maps any of Keywords, matched as substrings, to Category.
type KeywordRule struct {
	Keywords []string `yaml:"keywords"`
	Category string   `yaml:"category"`
}

// ClassificationValues extends the built-in classification tables. Extra rules are
// evaluated before the built-in ones.
type ClassificationValues struct {
	CategoryRules       []KeywordRule     `yaml:"category_rules"`
	SearchCategoryExact map[string]string `yaml:"search_category_exact"`
	SearchCategoryRules []KeywordRule     `yaml:"search_category_rules"`
}
