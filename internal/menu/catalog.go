// Package menu is the read-only view of the restaurant menu and the resolver
// that grounds assistant-produced dish names in it.
package menu

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/models"
)

// Source fetches the authoritative menu.
type Source interface {
	Menu(ctx context.Context) ([]models.MenuItem, error)
}

// Catalog caches the menu for the session. It is loaded once and only
// re-fetched on an explicit Refresh.
type Catalog struct {
	source Source
	log    logrus.FieldLogger

	mu     sync.RWMutex
	items  []models.MenuItem
	loaded bool
}

// NewCatalog creates a catalog over source.
func NewCatalog(source Source, log logrus.FieldLogger) *Catalog {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Catalog{
		source: source,
		log:    log.WithField("component", "menu"),
	}
}

// Load fetches the menu unless it is already loaded.
func (c *Catalog) Load(ctx context.Context) ([]models.MenuItem, error) {
	c.mu.RLock()
	if c.loaded {
		items := c.snapshot()
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()
	return c.Refresh(ctx)
}

// Refresh re-fetches the menu. Invalid entries are skipped.
func (c *Catalog) Refresh(ctx context.Context) ([]models.MenuItem, error) {
	fetched, err := c.source.Menu(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading menu")
	}

	items := make([]models.MenuItem, 0, len(fetched))
	seen := make(map[int]bool, len(fetched))
	for _, item := range fetched {
		if err := models.ValidateMenuItem(&item); err != nil {
			c.log.WithField("item_id", item.ID).Warnf("skipping menu item: %v", err)
			continue
		}
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		items = append(items, item)
	}

	c.mu.Lock()
	c.items = items
	c.loaded = true
	out := c.snapshot()
	c.mu.Unlock()

	c.log.WithField("count", len(items)).Debug("menu loaded")
	return out, nil
}

// Search filters the cached menu by name or description.
func (c *Catalog) Search(term string) []models.MenuItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var found []models.MenuItem
	for i := range c.items {
		if c.items[i].Matches(term) {
			found = append(found, c.items[i])
		}
	}
	return found
}

// Resolve grounds assistant dish names against the cached menu.
func (c *Catalog) Resolve(candidates []string) []models.MenuItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ResolveAll(candidates, c.items)
}

func (c *Catalog) snapshot() []models.MenuItem {
	out := make([]models.MenuItem, len(c.items))
	copy(out, c.items)
	return out
}
