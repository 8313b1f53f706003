package menu

import (
	"strings"

	"qtrestaurant/internal/models"
)

// Resolve maps a dish name produced by the assistant to a menu entry.
// A candidate matches when either lower-cased name contains the other; the
// first match in menu order wins. Blank candidates never match.
func Resolve(candidate string, items []models.MenuItem) (models.MenuItem, bool) {
	c := strings.ToLower(strings.TrimSpace(candidate))
	if c == "" {
		return models.MenuItem{}, false
	}

	for _, item := range items {
		name := strings.ToLower(strings.TrimSpace(item.Name))
		if name == "" {
			continue
		}
		if strings.Contains(name, c) || strings.Contains(c, name) {
			return item, true
		}
	}
	return models.MenuItem{}, false
}

// ResolveAll resolves every candidate in order and drops the misses.
func ResolveAll(candidates []string, items []models.MenuItem) []models.MenuItem {
	resolved := make([]models.MenuItem, 0, len(candidates))
	for _, c := range candidates {
		if item, ok := Resolve(c, items); ok {
			resolved = append(resolved, item)
		}
	}
	return resolved
}
