package domain

import "fmt"

// Category is the kind of telemetry a queue holds. Each category has its own
// queue and its own ingestion path.
type Category string

const (
	CategoryEvents Category = "events"
	CategoryPeople Category = "people"
	CategoryGroups Category = "groups"
)

// Categories returns every category in a stable order.
func Categories() []Category {
	return []Category{CategoryEvents, CategoryPeople, CategoryGroups}
}

// Path returns the ingestion endpoint path for the category.
func (c Category) Path() string {
	switch c {
	case CategoryEvents:
		return "/track"
	case CategoryPeople:
		return "/engage"
	case CategoryGroups:
		return "/groups"
	default:
		return ""
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c.Path() != ""
}

// ParseCategory converts a category name into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}
