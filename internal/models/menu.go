package models

import (
	"fmt"
	"strings"
)

// MenuItem represents a dish on the menu as served by the backend.
// The backend owns it; the client only reads it.
type MenuItem struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Category    string  `json:"category,omitempty"`
	Ingredients string  `json:"ingredients,omitempty"`
	Allergens   string  `json:"allergens,omitempty"`
	Calories    float64 `json:"calories,omitempty"`
}

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if item.ID <= 0 {
		return fmt.Errorf("menu item id must be positive")
	}
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("menu item name is required")
	}
	if item.Price < 0 {
		return fmt.Errorf("menu item price must not be negative")
	}
	return nil
}

// Matches reports whether the search term occurs in the name or description.
func (mi *MenuItem) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(mi.Name), term) ||
		strings.Contains(strings.ToLower(mi.Description), term)
}

// FormatVND renders an amount the way the restaurant prints prices,
// e.g. 1290000 -> "1,290,000 ₫".
func FormatVND(amount float64) string {
	n := int64(amount + 0.5)
	if amount < 0 {
		n = int64(amount - 0.5)
	}
	neg := n < 0
	if neg {
		n = -n
	}

	digits := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	if neg {
		return "-" + b.String() + " ₫"
	}
	return b.String() + " ₫"
}
