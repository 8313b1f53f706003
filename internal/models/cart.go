package models

import "encoding/json"

// CartLine is one selected dish and how many of it the guest wants.
type CartLine struct {
	Item     MenuItem
	Quantity int
}

// flatCartLine is the stored form: the menu item fields with quantity
// alongside them, so carts written by the web client read back unchanged.
type flatCartLine struct {
	MenuItem
	Quantity int `json:"quantity"`
}

// MarshalJSON implements json.Marshaler
func (l CartLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(flatCartLine{MenuItem: l.Item, Quantity: l.Quantity})
}

// UnmarshalJSON implements json.Unmarshaler
func (l *CartLine) UnmarshalJSON(data []byte) error {
	var flat flatCartLine
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	l.Item = flat.MenuItem
	l.Quantity = flat.Quantity
	return nil
}

// Subtotal returns price times quantity.
func (l CartLine) Subtotal() float64 {
	return l.Item.Price * float64(l.Quantity)
}

// CartEntry is the compact cart view handed to the chat assistant.
type CartEntry struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// CartEntries reduces lines to name/quantity pairs.
func CartEntries(lines []CartLine) []CartEntry {
	entries := make([]CartEntry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, CartEntry{Name: l.Item.Name, Quantity: l.Quantity})
	}
	return entries
}
