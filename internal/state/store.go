// Package state is the client's durable key/value storage: session token,
// profile cache, cart, booking selection and the pending payment.
package state

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"qtrestaurant/internal/database"
	"qtrestaurant/internal/models"
)

// Persisted keys.
const (
	KeyToken           = "token"
	KeyUsername        = "username"
	KeyFullName        = "fullName"
	KeyPhone           = "phone"
	KeyCart            = "cart"
	KeySelectedTable   = "selectedTable"
	KeyReservationTime = "reservationTime"
	KeyPendingPayment  = "pendingPayment"
)

// Entry is one stored key.
type Entry struct {
	Key       string `gorm:"column:state_key;primary_key;type:varchar(64)"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName keeps the table name stable.
func (Entry) TableName() string {
	return "client_state"
}

// Store reads and writes persisted client state.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// Open opens (or creates) the sqlite state file at path.
func Open(path string) (*Store, error) {
	db, err := database.Open(database.DriverSQLite, path, &Entry{})
	if err != nil {
		return nil, errors.Wrap(err, "opening client state")
	}
	return &Store{db: db}, nil
}

// New wraps an existing connection and migrates the state table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}).Error; err != nil {
		return nil, errors.Wrap(err, "migrating client state")
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value of key and whether it is set.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var e Entry
	err := s.db.Where("state_key = ?", key).First(&e).Error
	if gorm.IsRecordNotFoundError(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "reading %s", key)
	}
	return e.Value, true, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := s.db.Save(&e).Error; err != nil {
		return errors.Wrapf(err, "writing %s", key)
	}
	return nil
}

// Delete removes the given keys.
func (s *Store) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Where("state_key IN (?)", keys).Delete(&Entry{}).Error; err != nil {
		return errors.Wrap(err, "clearing state")
	}
	return nil
}

func (s *Store) getString(key string) string {
	v, _, err := s.Get(key)
	if err != nil {
		return ""
	}
	return v
}

func (s *Store) getJSON(key string, v interface{}) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, errors.Wrapf(err, "decoding %s", key)
	}
	return true, nil
}

func (s *Store) setJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return s.Set(key, string(data))
}

// Token returns the stored session token, or "".
func (s *Store) Token() string { return s.getString(KeyToken) }

// Username returns the stored username, or "".
func (s *Store) Username() string { return s.getString(KeyUsername) }

// SaveSession stores the token and username after login.
func (s *Store) SaveSession(token, username string) error {
	if err := s.Set(KeyToken, token); err != nil {
		return err
	}
	return s.Set(KeyUsername, username)
}

// Profile returns the cached profile fields.
func (s *Store) Profile() models.User {
	return models.User{
		Username: s.getString(KeyUsername),
		FullName: s.getString(KeyFullName),
		Phone:    s.getString(KeyPhone),
	}
}

// SaveProfile caches the profile returned by the backend. Empty fields are
// left as they were.
func (s *Store) SaveProfile(u models.User) error {
	for key, value := range map[string]string{
		KeyUsername: u.Username,
		KeyFullName: u.FullName,
		KeyPhone:    u.Phone,
	} {
		if value == "" {
			continue
		}
		if err := s.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// ClearSession forgets the token and cached profile.
func (s *Store) ClearSession() error {
	return s.Delete(KeyToken, KeyUsername, KeyFullName, KeyPhone)
}

// LoadCart implements cart.Persister
func (s *Store) LoadCart() ([]models.CartLine, error) {
	lines := []models.CartLine{}
	if _, err := s.getJSON(KeyCart, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// SaveCart implements cart.Persister
func (s *Store) SaveCart(lines []models.CartLine) error {
	if lines == nil {
		lines = []models.CartLine{}
	}
	return s.setJSON(KeyCart, lines)
}

// SelectedTable returns the table chosen for checkout, or 0.
func (s *Store) SelectedTable() int {
	id, err := strconv.Atoi(s.getString(KeySelectedTable))
	if err != nil {
		return 0
	}
	return id
}

// SetSelectedTable stores the chosen table.
func (s *Store) SetSelectedTable(id int) error {
	return s.Set(KeySelectedTable, strconv.Itoa(id))
}

// ReservationTime returns the chosen reservation time, or "".
func (s *Store) ReservationTime() string { return s.getString(KeyReservationTime) }

// SetReservationTime stores the chosen reservation time.
func (s *Store) SetReservationTime(t string) error {
	return s.Set(KeyReservationTime, t)
}

// ClearBooking forgets the table and time selection.
func (s *Store) ClearBooking() error {
	return s.Delete(KeySelectedTable, KeyReservationTime)
}

// PendingPayment returns the payment awaiting confirmation, if any.
func (s *Store) PendingPayment() (models.PendingPayment, bool, error) {
	var p models.PendingPayment
	ok, err := s.getJSON(KeyPendingPayment, &p)
	return p, ok, err
}

// SavePendingPayment stores a deferred payment for the payment step.
func (s *Store) SavePendingPayment(p models.PendingPayment) error {
	return s.setJSON(KeyPendingPayment, p)
}

// ClearPendingPayment forgets the pending payment.
func (s *Store) ClearPendingPayment() error {
	return s.Delete(KeyPendingPayment)
}

// AuthToken implements backend.TokenSource
func (s *Store) AuthToken() string {
	return s.Token()
}

// InvalidateSession implements backend.TokenSource
func (s *Store) InvalidateSession() {
	_ = s.ClearSession()
}
