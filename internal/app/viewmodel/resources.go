package viewmodel

import (
	"github.com/dalemusser/vlsiclub/internal/domain/models"
)

// Uncategorized holds resources with no category.
const Uncategorized = "Uncategorized"

// CategoryGroup is one bucket of resources.
type CategoryGroup struct {
	Category  string            `json:"category"`
	Resources []models.Document `json:"resources"`
}

// GroupByCategory buckets resources by their exact category string, so
// "Tools" and "Tools " are separate buckets. Categories appear in order of
// first appearance, and each resource lands in exactly one bucket. An empty
// or missing category is labelled Uncategorized.
func GroupByCategory(resources []models.Document) []CategoryGroup {
	index := map[string]int{}
	groups := []CategoryGroup{}
	for _, r := range resources {
		cat := r.String("category")
		if cat == "" {
			cat = Uncategorized
		}
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, CategoryGroup{Category: cat})
		}
		groups[i].Resources = append(groups[i].Resources, r)
	}
	return groups
}
