package cart

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Ingredient is identified by its exact, case-sensitive Name. Icon is
// presentation only.
type Ingredient struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// ConfigurationKey identifies one product with one ingredient selection.
type ConfigurationKey string

const keySeparator = "-"

var ErrUnknownIngredient = errors.New("ingredient is not part of the product")

// Key is order-independent over ingredients and ignores duplicate names.
// An empty selection yields "<productID>-".
func Key(productID int64, ingredients []Ingredient) ConfigurationKey {
	names := uniqueNames(ingredients)
	sort.Strings(names)
	return ConfigurationKey(strconv.FormatInt(productID, 10) + keySeparator + strings.Join(names, keySeparator))
}

// NormalizeIngredients drops unnamed entries and repeated names, keeping the
// first occurrence.
func NormalizeIngredients(in []Ingredient) []Ingredient {
	out := make([]Ingredient, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, ing := range in {
		if ing.Name == "" {
			continue
		}
		if _, ok := seen[ing.Name]; ok {
			continue
		}
		seen[ing.Name] = struct{}{}
		out = append(out, ing)
	}
	return out
}

// RemovedIngredients lists base ingredient names missing from selected, in
// base order. Used for the "Sin: ..." line on receipts.
func RemovedIngredients(base, selected []Ingredient) []string {
	have := make(map[string]struct{}, len(selected))
	for _, ing := range selected {
		have[ing.Name] = struct{}{}
	}
	var removed []string
	for _, ing := range NormalizeIngredients(base) {
		if _, ok := have[ing.Name]; !ok {
			removed = append(removed, ing.Name)
		}
	}
	return removed
}

// CheckSelection rejects selected names that are not among the product's base
// ingredients. Only base ingredients can be toggled, so keys cannot be built
// from arbitrary names.
func CheckSelection(base, selected []Ingredient) error {
	allowed := make(map[string]struct{}, len(base))
	for _, ing := range base {
		allowed[ing.Name] = struct{}{}
	}
	for _, ing := range selected {
		if _, ok := allowed[ing.Name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownIngredient, ing.Name)
		}
	}
	return nil
}

func uniqueNames(in []Ingredient) []string {
	norm := NormalizeIngredients(in)
	names := make([]string, 0, len(norm))
	for _, ing := range norm {
		names = append(names, ing.Name)
	}
	return names
}
