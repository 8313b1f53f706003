// Package cart holds the guest's current selections. Every surface of the
// client (menu, cart sidebar, chat) mutates the same Store and re-renders
// from the snapshots it publishes.
package cart

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/models"
)

// Persister stores the full cart under a single key.
type Persister interface {
	LoadCart() ([]models.CartLine, error)
	SaveCart(lines []models.CartLine) error
}

// Snapshot is the cart state after a mutation. Version increases by one per
// successful mutation, so a listener can ignore snapshots older than the one
// it already rendered.
type Snapshot struct {
	Version uint64
	Lines   []models.CartLine
}

// Total sums the line subtotals.
func (s Snapshot) Total() float64 {
	return total(s.Lines)
}

// Count sums the quantities.
func (s Snapshot) Count() int {
	return count(s.Lines)
}

// Listener is called after every successful mutation.
type Listener func(Snapshot)

// Store is the shared cart. Mutations are serialized; each one persists the
// whole collection before memory changes, then notifies listeners.
type Store struct {
	persist Persister
	log     logrus.FieldLogger

	mu      sync.Mutex
	lines   []models.CartLine
	version uint64

	lmu       sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// NewStore creates an empty store. Call Restore to load the persisted cart.
func NewStore(persist Persister, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		persist:   persist,
		log:       log.WithField("component", "cart"),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

// Restore replaces the in-memory cart with the persisted one. Lines with a
// non-positive quantity or a repeated item id are dropped.
func (s *Store) Restore() error {
	loaded, err := s.persist.LoadCart()
	if err != nil {
		return errors.Wrap(err, "restoring cart")
	}

	lines := make([]models.CartLine, 0, len(loaded))
	seen := make(map[int]bool, len(loaded))
	for _, l := range loaded {
		if l.Quantity <= 0 || seen[l.Item.ID] {
			continue
		}
		seen[l.Item.ID] = true
		lines = append(lines, l)
	}

	s.mu.Lock()
	s.lines = lines
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Add puts one more of item in the cart.
func (s *Store) Add(item models.MenuItem) error {
	return s.AddAll([]models.MenuItem{item})
}

// AddAll adds one of each item as a single mutation.
func (s *Store) AddAll(items []models.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.mutate(func(lines []models.CartLine) []models.CartLine {
		for _, item := range items {
			lines = addLine(lines, item)
		}
		return lines
	})
}

// SetQuantity sets the quantity of a line; q <= 0 removes it.
func (s *Store) SetQuantity(itemID, q int) error {
	return s.mutate(func(lines []models.CartLine) []models.CartLine {
		if q <= 0 {
			return removeLine(lines, itemID)
		}
		for i := range lines {
			if lines[i].Item.ID == itemID {
				lines[i].Quantity = q
			}
		}
		return lines
	})
}

// Remove deletes the line for itemID.
func (s *Store) Remove(itemID int) error {
	return s.mutate(func(lines []models.CartLine) []models.CartLine {
		return removeLine(lines, itemID)
	})
}

// Clear empties the cart.
func (s *Store) Clear() error {
	return s.mutate(func([]models.CartLine) []models.CartLine {
		return []models.CartLine{}
	})
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []models.CartLine {
	return s.Snapshot().Lines
}

// Total returns the cart total.
func (s *Store) Total() float64 {
	return s.Snapshot().Total()
}

// Count returns the number of dishes in the cart.
func (s *Store) Count() int {
	return s.Snapshot().Count()
}

func (s *Store) mutate(fn func([]models.CartLine) []models.CartLine) error {
	s.mu.Lock()
	next := fn(copyLines(s.lines))
	if err := s.persist.SaveCart(next); err != nil {
		s.mu.Unlock()
		s.log.Warnf("cart not saved: %v", err)
		return errors.Wrap(err, "saving cart")
	}
	s.lines = next
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

func (s *Store) notify(snap Snapshot) {
	s.lmu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.lmu.Unlock()

	for _, l := range listeners {
		l(Snapshot{Version: snap.Version, Lines: copyLines(snap.Lines)})
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Version: s.version, Lines: copyLines(s.lines)}
}

func addLine(lines []models.CartLine, item models.MenuItem) []models.CartLine {
	for i := range lines {
		if lines[i].Item.ID == item.ID {
			lines[i].Quantity++
			return lines
		}
	}
	return append(lines, models.CartLine{Item: item, Quantity: 1})
}

func removeLine(lines []models.CartLine, itemID int) []models.CartLine {
	out := lines[:0]
	for _, l := range lines {
		if l.Item.ID != itemID {
			out = append(out, l)
		}
	}
	return out
}

func copyLines(lines []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, len(lines))
	copy(out, lines)
	return out
}

func total(lines []models.CartLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.Subtotal()
	}
	return sum
}

func count(lines []models.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
