package purchase

import "strings"

// Category is the closed set of product categories.
type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryAppliances  Category = "Appliances"
	CategoryFurniture   Category = "Furniture"
	CategoryClothing    Category = "Clothing"
	CategoryBooks       Category = "Books"
	CategorySports      Category = "Sports Equipment"
	CategoryTools       Category = "Tools"
	CategoryAutomotive  Category = "Automotive"
	CategoryHomeGarden  Category = "Home & Garden"
	CategoryOther       Category = "Other"
)

// Categories lists every category in declaration order, Other last.
func Categories() []Category {
	out := make([]Category, 0, len(categoryKeywords)+1)
	for _, entry := range categoryKeywords {
		out = append(out, entry.category)
	}
	return append(out, CategoryOther)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Categorize maps a product name to a category by keyword substring. The
// earliest declared category wins ties; unresolved names map to Other.
func Categorize(name string) Category {
	name = strings.ToLower(name)
	if name == "" {
		return CategoryOther
	}
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(name, kw) {
				return entry.category
			}
		}
	}
	return CategoryOther
}
