package analysis

import (
	"fmt"
	"strings"
)

// DefaultAllergen is always screened and cannot be deselected.
const DefaultAllergen = "gluten"

// Allergen is one entry of the selectable catalog.
type Allergen struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Locked     bool   `json:"locked,omitempty"`
	ComingSoon bool   `json:"comingSoon,omitempty"`
}

var catalog = []Allergen{
	{ID: DefaultAllergen, Name: "Gluten", Locked: true},
	{ID: "caffeine", Name: "Caffeine"},
	{ID: "chocolate", Name: "Chocolate"},
	{ID: "dairy", Name: "Dairy", ComingSoon: true},
	{ID: "soy", Name: "Soy", ComingSoon: true},
	{ID: "nuts", Name: "Nuts", ComingSoon: true},
}

// Catalog returns a copy of the allergen catalog in display order.
func Catalog() []Allergen {
	out := make([]Allergen, len(catalog))
	copy(out, catalog)
	return out
}

// NormalizeAllergens lower-cases and de-duplicates ids, keeping first
// occurrence order, and guarantees DefaultAllergen is first.
func NormalizeAllergens(in []string) []string {
	out := []string{DefaultAllergen}
	seen := map[string]bool{DefaultAllergen: true}
	for _, a := range in {
		id := strings.ToLower(strings.TrimSpace(a))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ValidateAllergens rejects ids that are not selectable in the catalog.
func ValidateAllergens(in []string) error {
	for _, a := range in {
		id := strings.ToLower(strings.TrimSpace(a))
		if id == "" {
			continue
		}
		found := false
		for _, c := range catalog {
			if c.ID != id {
				continue
			}
			if c.ComingSoon {
				return fmt.Errorf("%w: %s is not available yet", ErrUnknownAllergen, id)
			}
			found = true
			break
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownAllergen, id)
		}
	}
	return nil
}
