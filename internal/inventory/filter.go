package inventory

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/erazemk/shramba/internal/model"
)

// Filter returns the items whose name starts with term, ignoring case.
// Order is preserved. An empty term returns all items.
func Filter(items []model.Item, term string) []model.Item {
	if term == "" {
		return slices.Clone(items)
	}

	// A Caser is stateful, so each call gets its own.
	lower := cases.Lower(language.Und)
	prefix := lower.String(term)

	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		if strings.HasPrefix(lower.String(item.Name), prefix) {
			out = append(out, item)
		}
	}
	return out
}
