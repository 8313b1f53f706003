package database

import (
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"qtrestaurant/internal/models"
)

// MaxRecent caps how many exchanges Recent returns.
const MaxRecent = 500

// ExchangeStore is the chat proxy transcript.
type ExchangeStore struct {
	db *gorm.DB
}

// NewExchangeStore wraps a migrated connection.
func NewExchangeStore(db *gorm.DB) *ExchangeStore {
	return &ExchangeStore{db: db}
}

// Record saves one exchange.
func (s *ExchangeStore) Record(ex *models.ChatExchange) error {
	if err := s.db.Create(ex).Error; err != nil {
		return errors.Wrap(err, "recording chat exchange")
	}
	return nil
}

// Recent returns the newest exchanges first.
func (s *ExchangeStore) Recent(limit int) ([]models.ChatExchange, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	var out []models.ChatExchange
	if err := s.db.Order("id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "listing chat exchanges")
	}
	return out, nil
}

// FallbackCount returns how many recorded exchanges fell back.
func (s *ExchangeStore) FallbackCount() (int, error) {
	var n int
	if err := s.db.Model(&models.ChatExchange{}).Where("fallback = ?", true).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "counting fallbacks")
	}
	return n, nil
}
