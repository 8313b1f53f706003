package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtrestaurant/internal/cart"
	"qtrestaurant/internal/models"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestStore_GetSetDelete(t *testing.T) {
	s, _ := openStore(t)

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("a", "2"))
	v, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, s.Delete("a"))
	_, ok, _ = s.Get("a")
	assert.False(t, ok)
}

func TestStore_SessionLifecycle(t *testing.T) {
	s, _ := openStore(t)

	require.NoError(t, s.SaveSession("tok", "quan"))
	require.NoError(t, s.SaveProfile(models.User{FullName: "Lê Hoàng Quân", Phone: "0934016724"}))

	assert.Equal(t, "tok", s.AuthToken())
	assert.Equal(t, models.User{Username: "quan", FullName: "Lê Hoàng Quân", Phone: "0934016724"}, s.Profile())

	s.InvalidateSession()
	assert.Empty(t, s.Token())
	assert.Equal(t, models.User{}, s.Profile())
}

func TestStore_CartSurvivesReopen(t *testing.T) {
	s, path := openStore(t)

	store := cart.NewStore(s, nil)
	require.NoError(t, store.Add(models.MenuItem{ID: 3, Name: "Foie Gras Mousse", Price: 159000}))
	require.NoError(t, store.Add(models.MenuItem{ID: 3, Name: "Foie Gras Mousse", Price: 159000}))
	require.NoError(t, store.Add(models.MenuItem{ID: 7, Name: "Pumpkin Velouté", Price: 99000}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	restored := cart.NewStore(reopened, nil)
	require.NoError(t, restored.Restore())
	assert.Equal(t, store.Lines(), restored.Lines())
}

func TestStore_LoadCartEmpty(t *testing.T) {
	s, _ := openStore(t)

	lines, err := s.LoadCart()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestStore_BookingAndPendingPayment(t *testing.T) {
	s, _ := openStore(t)

	assert.Equal(t, 0, s.SelectedTable())
	require.NoError(t, s.SetSelectedTable(4))
	require.NoError(t, s.SetReservationTime("2026-10-20T19:30"))
	assert.Equal(t, 4, s.SelectedTable())
	assert.Equal(t, "2026-10-20T19:30", s.ReservationTime())

	_, ok, err := s.PendingPayment()
	require.NoError(t, err)
	assert.False(t, ok)

	pending := models.PendingPayment{InvoiceID: 12, Amount: 548000, Method: models.PaymentQRCode, OrderID: 30}
	require.NoError(t, s.SavePendingPayment(pending))
	got, ok, err := s.PendingPayment()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pending, got)

	require.NoError(t, s.ClearPendingPayment())
	require.NoError(t, s.ClearBooking())
	_, ok, _ = s.PendingPayment()
	assert.False(t, ok)
	assert.Equal(t, 0, s.SelectedTable())
	assert.Empty(t, s.ReservationTime())
}
