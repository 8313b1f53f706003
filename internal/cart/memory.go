package cart

import (
	"encoding/json"
	"sync"

	"qtrestaurant/internal/models"
)

// MemoryPersister keeps the cart in its stored JSON form without touching
// disk.
type MemoryPersister struct {
	mu   sync.Mutex
	data []byte
}

// LoadCart implements Persister
func (m *MemoryPersister) LoadCart() ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := []models.CartLine{}
	if len(m.data) == 0 {
		return lines, nil
	}
	if err := json.Unmarshal(m.data, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SaveCart implements Persister
func (m *MemoryPersister) SaveCart(lines []models.CartLine) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

var _ Persister = (*MemoryPersister)(nil)
