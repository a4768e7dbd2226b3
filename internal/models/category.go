package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCategory is returned when a category name is not part of the set.
var ErrUnknownCategory = errors.New("unknown category")

// Category is one of the fixed transaction categories. The zero value is
// CategoryNone and is never valid on a stored transaction.
type Category int

const (
	CategoryNone Category = iota
	CategoryIncome
	CategoryHousing
	CategoryUtilities
	CategoryGroceries
	CategoryDining
	CategoryTransportation
	CategoryHealthcare
	CategoryInsurance
	CategoryEntertainment
	CategoryShopping
	CategoryEducation
	CategoryTravel
	CategoryGifts
	CategoryOther
)

type categoryDef struct {
	name  string
	icon  string
	color string
}

var categoryDefs = map[Category]categoryDef{
	CategoryIncome:         {"Income", "💰", "#34d399"},
	CategoryHousing:        {"Housing", "🏠", "#818cf8"},
	CategoryUtilities:      {"Utilities", "💡", "#fbbf24"},
	CategoryGroceries:      {"Groceries", "🛒", "#60a5fa"},
	CategoryDining:         {"Dining", "🍽️", "#f97316"},
	CategoryTransportation: {"Transportation", "🚌", "#a78bfa"},
	CategoryHealthcare:     {"Healthcare", "🩺", "#f87171"},
	CategoryInsurance:      {"Insurance", "🛡️", "#2dd4bf"},
	CategoryEntertainment:  {"Entertainment", "🎮", "#f472b6"},
	CategoryShopping:       {"Shopping", "🛍️", "#e879f9"},
	CategoryEducation:      {"Education", "📚", "#38bdf8"},
	CategoryTravel:         {"Travel", "✈️", "#4ade80"},
	CategoryGifts:          {"Gifts", "🎁", "#fb7185"},
	CategoryOther:          {"Other", "📦", "#94a3b8"},
}

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{
		CategoryIncome,
		CategoryHousing,
		CategoryUtilities,
		CategoryGroceries,
		CategoryDining,
		CategoryTransportation,
		CategoryHealthcare,
		CategoryInsurance,
		CategoryEntertainment,
		CategoryShopping,
		CategoryEducation,
		CategoryTravel,
		CategoryGifts,
		CategoryOther,
	}
}

// ParseCategory looks up a category by its display name, ignoring case and
// surrounding whitespace.
func ParseCategory(name string) (Category, error) {
	name = strings.TrimSpace(name)
	for c, def := range categoryDefs {
		if strings.EqualFold(def.name, name) {
			return c, nil
		}
	}
	return CategoryNone, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Valid reports whether c is part of the category set.
func (c Category) Valid() bool {
	_, ok := categoryDefs[c]
	return ok
}

// IsIncome reports whether transactions in c count as income rather than expenses.
func (c Category) IsIncome() bool {
	return c == CategoryIncome
}

func (c Category) String() string {
	if def, ok := categoryDefs[c]; ok {
		return def.name
	}
	return ""
}

// Icon returns the emoji shown next to the category.
func (c Category) Icon() string {
	if def, ok := categoryDefs[c]; ok {
		return def.icon
	}
	return "📦"
}

// Color returns the chart colour for the category.
func (c Category) Color() string {
	if def, ok := categoryDefs[c]; ok {
		return def.color
	}
	return "#94a3b8"
}

// Scan implements sql.Scanner. Categories are stored by display name.
func (c *Category) Scan(value any) error {
	var name string
	switch v := value.(type) {
	case string:
		name = v
	case []byte:
		name = string(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrUnknownCategory, value)
	}
	parsed, err := ParseCategory(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer.
func (c Category) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return c.String(), nil
}
