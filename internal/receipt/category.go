package receipt

import "strings"

// Category is one of a fixed, closed set of expense categories
type Category string

const (
	FoodAndDining Category = "Food & Dining"
	Shopping      Category = "Shopping"
	Travel        Category = "Travel"
	Health        Category = "Health"
	Utilities     Category = "Utilities"
	Entertainment Category = "Entertainment"
	Other         Category = "Other"
)

// DefaultCategory is used when nothing better is known
const DefaultCategory = Other

// Categories lists the closed set in display order
var Categories = []Category{
	FoodAndDining,
	Shopping,
	Travel,
	Health,
	Utilities,
	Entertainment,
	Other,
}

var categorySynonyms = map[string]Category{
	"food":            FoodAndDining,
	"dining":          FoodAndDining,
	"food and dining": FoodAndDining,
	"restaurant":      FoodAndDining,
	"restaurants":     FoodAndDining,
	"groceries":       FoodAndDining,
	"grocery":         FoodAndDining,
	"coffee":          FoodAndDining,
	"retail":          Shopping,
	"clothing":        Shopping,
	"transport":       Travel,
	"transportation":  Travel,
	"fuel":            Travel,
	"gas":             Travel,
	"hotel":           Travel,
	"airline":         Travel,
	"taxi":            Travel,
	"medical":         Health,
	"pharmacy":        Health,
	"healthcare":      Health,
	"bills":           Utilities,
	"internet":        Utilities,
	"phone":           Utilities,
	"electricity":     Utilities,
	"movies":          Entertainment,
	"music":           Entertainment,
	"games":           Entertainment,
}

// ParseCategory maps free text onto the closed set. It reports false
// when the input matches neither a category nor a known synonym.
func ParseCategory(input string) (Category, bool) {
	normalized := strings.ToLower(strings.Join(strings.Fields(input), " "))
	if normalized == "" {
		return DefaultCategory, false
	}

	for _, c := range Categories {
		if normalized == strings.ToLower(string(c)) {
			return c, true
		}
	}
	if c, ok := categorySynonyms[normalized]; ok {
		return c, true
	}
	return DefaultCategory, false
}

// Valid reports whether c belongs to the closed set
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// CategoryNames returns the categories as strings, e.g. for form options
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}
