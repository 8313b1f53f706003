package models

import "time"

// Table is a dining table that can be reserved.
type Table struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Capacity  *int   `json:"capacity,omitempty"`
	Available bool   `json:"available"`
}

// TableRef is the nested {id, name} form the backend uses inside other resources.
type TableRef struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// ReservationStatus represents the possible states of a reservation
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationCompleted ReservationStatus = "COMPLETED"
)

// Reservation is a table booking.
type Reservation struct {
	ID              int               `json:"id"`
	CustomerName    string            `json:"customerName"`
	CustomerPhone   string            `json:"customerPhone"`
	PartySize       int               `json:"partySize"`
	ReservationTime string            `json:"reservationTime"`
	Table           *TableRef         `json:"table,omitempty"`
	Status          ReservationStatus `json:"status"`
}

// TableID returns the reserved table id, or 0 when the table is unknown.
func (r Reservation) TableID() int {
	if r.Table == nil {
		return 0
	}
	return r.Table.ID
}

// Time parses the reservation time; the backend uses local ISO timestamps
// without a zone, as produced by a datetime-local input.
func (r Reservation) Time() (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, r.ReservationTime, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Value: r.ReservationTime, Message: ": unrecognised reservation time"}
}

// ReservationRequest is the body of POST /reservations.
type ReservationRequest struct {
	CustomerName    string            `json:"customerName"`
	CustomerPhone   string            `json:"customerPhone"`
	PartySize       int               `json:"partySize"`
	ReservationTime string            `json:"reservationTime"`
	TableID         int               `json:"tableId"`
	Status          ReservationStatus `json:"status"`
}

// OrderStatus represents the possible states of an order
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusCooking   OrderStatus = "COOKING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order represents a customer order as returned by the backend
type Order struct {
	ID          int          `json:"id"`
	Table       *TableRef    `json:"table,omitempty"`
	Reservation *Reservation `json:"reservation,omitempty"`
	Items       []OrderItem  `json:"items"`
	Notes       string       `json:"notes,omitempty"`
	Status      OrderStatus  `json:"status"`
	Total       float64      `json:"total"`
}

// OrderItem represents an item in an order
type OrderItem struct {
	MenuItem *MenuItem   `json:"menuItem,omitempty"`
	Quantity int         `json:"quantity"`
	Price    float64     `json:"price"`
	Status   OrderStatus `json:"status,omitempty"`
}

// HasCookingItems reports whether the kitchen already started on the order.
func (o Order) HasCookingItems() bool {
	for _, it := range o.Items {
		if it.Status == OrderStatusCooking {
			return true
		}
	}
	return false
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	TableID       int                `json:"tableId"`
	ReservationID int                `json:"reservationId,omitempty"`
	Notes         string             `json:"notes"`
	Status        OrderStatus        `json:"status"`
	Items         []OrderItemRequest `json:"items"`
}

// OrderItemRequest is one line of an OrderRequest.
type OrderItemRequest struct {
	MenuItemID int     `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

// OrderItemsFromCart maps cart lines to order lines.
func OrderItemsFromCart(lines []CartLine) []OrderItemRequest {
	items := make([]OrderItemRequest, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItemRequest{
			MenuItemID: l.Item.ID,
			Quantity:   l.Quantity,
			Price:      l.Item.Price,
		})
	}
	return items
}

// Invoice is the bill created for an order.
type Invoice struct {
	ID     int     `json:"id"`
	Amount float64 `json:"amount"`
	Status string  `json:"status,omitempty"`
}

// PaymentMethod is how the guest settles an invoice.
type PaymentMethod string

const (
	PaymentQRCode PaymentMethod = "qrcode"
	PaymentBank   PaymentMethod = "bank"
	PaymentMomo   PaymentMethod = "momo"
	PaymentCash   PaymentMethod = "cash"
)

// Deferred reports whether the method needs the payment display step
// before the invoice can be marked paid.
func (m PaymentMethod) Deferred() bool {
	switch m {
	case PaymentQRCode, PaymentBank, PaymentMomo:
		return true
	}
	return false
}

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	return m.Deferred() || m == PaymentCash
}

// PendingPayment describes an invoice waiting for the guest's transfer.
type PendingPayment struct {
	InvoiceID int           `json:"invoiceId"`
	Amount    float64       `json:"amount"`
	Method    PaymentMethod `json:"method"`
	OrderID   int           `json:"orderId"`
}

// User is the authenticated guest profile.
type User struct {
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}
