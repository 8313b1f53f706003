package orders

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"qtrestaurant/internal/backend"
	"qtrestaurant/internal/models"
)

var (
	reservations = []models.Reservation{
		{ID: 1, CustomerName: "quan", Table: &models.TableRef{ID: 4, Name: "Bàn 4"}, PartySize: 2, Status: models.ReservationConfirmed},
		{ID: 2, CustomerName: "lan", Table: &models.TableRef{ID: 5, Name: "Bàn 5"}, Status: models.ReservationConfirmed},
		{ID: 3, CustomerName: "quan", Status: models.ReservationPending},
	}
	allOrders = []models.Order{
		{ID: 10, Reservation: &models.Reservation{ID: 3, CustomerName: "quan"}},
		{ID: 11, Table: &models.TableRef{ID: 4, Name: "Bàn 4"}, Total: 798000,
			Items: []models.OrderItem{{MenuItem: &models.MenuItem{Name: "Lamb Rack Herb Crust"}, Quantity: 1}}},
		{ID: 12, Table: &models.TableRef{ID: 5}},
		{ID: 13},
	}
)

func TestFilter(t *testing.T) {
	v := Filter("quan", reservations, allOrders)

	require.Len(t, v.Reservations, 2)
	assert.Equal(t, 1, v.Reservations[0].ID)
	assert.Equal(t, 3, v.Reservations[1].ID)

	require.Len(t, v.Orders, 2)
	assert.Equal(t, 10, v.Orders[0].ID)
	assert.Equal(t, 11, v.Orders[1].ID)

	empty := Filter("nobody", reservations, allOrders)
	assert.NotNil(t, empty.Reservations)
	assert.Empty(t, empty.Orders)
}

func TestCanCancel(t *testing.T) {
	cooking := []models.Order{{
		Reservation: &models.Reservation{ID: 3},
		Items:       []models.OrderItem{{Status: models.OrderStatusCooking}},
	}}

	assert.False(t, CanCancel(models.Reservation{ID: 1, Status: models.ReservationCancelled}, nil))
	assert.False(t, CanCancel(models.Reservation{ID: 1, Status: models.ReservationCompleted}, nil))
	assert.True(t, CanCancel(models.Reservation{ID: 3, Status: models.ReservationConfirmed}, cooking))
	assert.False(t, CanCancel(models.Reservation{ID: 3, Status: models.ReservationPending}, cooking))
	assert.True(t, CanCancel(models.Reservation{ID: 4, Status: models.ReservationPending}, cooking))
}

func TestHistory_LoadAndCancel(t *testing.T) {
	var deleted []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"username":"quan"}`))
	})
	mux.HandleFunc("GET /reservations", func(w http.ResponseWriter, r *http.Request) {
		if len(deleted) > 0 {
			w.Write([]byte(`[{"id":1,"customerName":"quan","status":"CANCELLED","table":{"id":4}}]`))
			return
		}
		w.Write([]byte(`[{"id":1,"customerName":"quan","status":"CONFIRMED","table":{"id":4}},{"id":2,"customerName":"lan","table":{"id":5}}]`))
	})
	mux.HandleFunc("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":11,"table":{"id":4},"status":"NEW"},{"id":12,"table":{"id":5}}]`))
	})
	mux.HandleFunc("DELETE /reservations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "99" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Không tìm thấy đặt bàn"}`))
			return
		}
		deleted = append(deleted, r.PathValue("id"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := NewHistory(backend.NewClient(srv.URL), nil)
	v, err := h.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quan", v.Username)
	assert.Len(t, v.Reservations, 1)
	assert.Len(t, v.Orders, 1)

	v, err = h.Cancel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, deleted)
	assert.Equal(t, models.ReservationCancelled, v.Reservations[0].Status)

	_, err = h.Cancel(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, "Không tìm thấy đặt bàn", backend.Message(err, ""))
	assert.Len(t, h.View().Reservations, 1)
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, Filter("quan", reservations, allOrders)))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	res := file.Sheet[ReservationsSheet]
	require.NotNil(t, res)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "Khách", res.Rows[0].Cells[1].Value)
	assert.Equal(t, "Bàn 4", res.Rows[1].Cells[2].Value)
	assert.Equal(t, "Đã Xác Nhận", res.Rows[1].Cells[6].Value)

	ord := file.Sheet[OrdersSheet]
	require.NotNil(t, ord)
	require.Len(t, ord.Rows, 3)
	assert.Equal(t, "Lamb Rack Herb Crust", ord.Rows[2].Cells[2].Value)
	assert.Equal(t, "1", ord.Rows[2].Cells[3].Value)
}
