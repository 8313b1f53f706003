// Package orders shows a guest their reservations and orders.
package orders

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/models"
)

// Backend is the REST surface the history needs.
type Backend interface {
	Me(ctx context.Context) (models.User, error)
	Reservations(ctx context.Context) ([]models.Reservation, error)
	Orders(ctx context.Context) ([]models.Order, error)
	CancelReservation(ctx context.Context, id int) error
}

// View is one guest's slice of the backend data.
type View struct {
	Username     string
	Reservations []models.Reservation
	Orders       []models.Order
}

// Filter keeps the reservations booked under username and the orders
// tied to them, either through the order's reservation or through a table
// one of those reservations holds.
func Filter(username string, reservations []models.Reservation, orders []models.Order) View {
	v := View{
		Username:     username,
		Reservations: []models.Reservation{},
		Orders:       []models.Order{},
	}

	tables := make(map[int]bool)
	for _, r := range reservations {
		if r.CustomerName != username {
			continue
		}
		v.Reservations = append(v.Reservations, r)
		if id := r.TableID(); id != 0 {
			tables[id] = true
		}
	}

	for _, o := range orders {
		if o.Reservation != nil && o.Reservation.CustomerName == username {
			v.Orders = append(v.Orders, o)
			continue
		}
		if o.Table != nil && tables[o.Table.ID] {
			v.Orders = append(v.Orders, o)
		}
	}
	return v
}

// CanCancel reports whether r may still be cancelled: it must be open, and
// unless it is confirmed the kitchen must not have started on its order.
func CanCancel(r models.Reservation, orders []models.Order) bool {
	switch r.Status {
	case models.ReservationCancelled, models.ReservationCompleted:
		return false
	case models.ReservationConfirmed:
		return true
	}
	for _, o := range orders {
		if o.Reservation != nil && o.Reservation.ID == r.ID {
			return !o.HasCookingItems()
		}
	}
	return true
}

// StatusLabel names a reservation or order status for the guest.
func StatusLabel(status string) string {
	switch status {
	case "CONFIRMED":
		return "Đã Xác Nhận"
	case "PENDING":
		return "Chờ Xác Nhận"
	case "CANCELLED":
		return "Đã Hủy"
	case "COMPLETED":
		return "Hoàn Thành"
	case "NEW":
		return "Mới"
	case "COOKING":
		return "Đang Nấu"
	}
	return status
}

// History loads and caches the current guest's view.
type History struct {
	api Backend
	log logrus.FieldLogger

	mu   sync.Mutex
	view View
}

// NewHistory creates a history backed by api.
func NewHistory(api Backend, log logrus.FieldLogger) *History {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &History{api: api, log: log.WithField("component", "orders")}
}

// Load fetches the user, every reservation and every order, and keeps
// the ones that belong to the user.
func (h *History) Load(ctx context.Context) (View, error) {
	user, err := h.api.Me(ctx)
	if err != nil {
		return View{}, errors.Wrap(err, "loading user")
	}
	reservations, err := h.api.Reservations(ctx)
	if err != nil {
		return View{}, errors.Wrap(err, "loading reservations")
	}
	all, err := h.api.Orders(ctx)
	if err != nil {
		return View{}, errors.Wrap(err, "loading orders")
	}

	v := Filter(user.Username, reservations, all)
	h.log.WithFields(logrus.Fields{
		"username":     v.Username,
		"reservations": len(v.Reservations),
		"orders":       len(v.Orders),
	}).Debug("history loaded")

	h.mu.Lock()
	h.view = v
	h.mu.Unlock()
	return v, nil
}

// View returns the last loaded view.
func (h *History) View() View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.view
}

// Cancel deletes the reservation and reloads.
func (h *History) Cancel(ctx context.Context, id int) (View, error) {
	if err := h.api.CancelReservation(ctx, id); err != nil {
		return h.View(), errors.Wrapf(err, "cancelling reservation %d", id)
	}
	h.log.WithField("reservation", id).Info("reservation cancelled")
	return h.Load(ctx)
}
