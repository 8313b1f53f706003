package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtrestaurant/internal/models"
)

type fakeTokens struct {
	token       string
	invalidated bool
}

func (f *fakeTokens) AuthToken() string  { return f.token }
func (f *fakeTokens) InvalidateSession() { f.invalidated = true; f.token = "" }

func TestClient_MenuSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/menu", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":1,"name":"Truffle Arancini","price":890000},{"id":2,"name":"Smoked Salmon Tartare","price":1290000}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithTokenSource(&fakeTokens{token: "tok"}))
	items, err := c.Menu(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Smoked Salmon Tartare", items[1].Name)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, WithTokenSource(&fakeTokens{})).Tables(context.Background())
	require.NoError(t, err)
}

func TestClient_CreateOrderBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(4), body["tableId"])
		assert.Equal(t, float64(7), body["reservationId"])
		assert.Equal(t, "NEW", body["status"])
		items := body["items"].([]interface{})
		require.Len(t, items, 1)
		assert.Equal(t, float64(10), items[0].(map[string]interface{})["menuItemId"])

		w.Write([]byte(`{"id":30,"status":"NEW","total":429000}`))
	}))
	defer srv.Close()

	order, err := NewClient(srv.URL).CreateOrder(context.Background(), models.OrderRequest{
		TableID:       4,
		ReservationID: 7,
		Status:        models.OrderStatusNew,
		Items:         []models.OrderItemRequest{{MenuItemID: 10, Quantity: 1, Price: 429000}},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, order.ID)
}

func TestClient_PayQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/billing/pay/12", r.URL.Path)
		assert.Equal(t, "548000", r.URL.Query().Get("amount"))
		assert.Equal(t, "cash", r.URL.Query().Get("method"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL).Pay(context.Background(), 12, 548000, models.PaymentCash))
}

func TestClient_ErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Bàn đã được đặt","error":"Conflict"}`, "Bàn đã được đặt"},
		{"error field", `{"error":"Bad Request"}`, "Bad Request"},
		{"json string", `"Table not available"`, "Table not available"},
		{"raw text", `table busy`, "table busy"},
		{"raw json", `{"status":409}`, `{"status":409}`},
		{"empty", ``, "Conflict"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).CreateReservation(context.Background(), models.ReservationRequest{})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusConflict, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, tc.want, Message(err, "fallback"))
		})
	}
}

func TestClient_UnauthorizedInvalidatesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale"}
	_, err := NewClient(srv.URL, WithTokenSource(tokens)).Me(context.Background())

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.True(t, tokens.invalidated)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url).CancelReservation(context.Background(), 3)
	require.Error(t, err)
	assert.NotEmpty(t, Message(err, "fallback"))
}

func TestClient_UpdateReservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/reservations/7", r.URL.Path)

		var body models.ReservationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 4, body.PartySize)
		assert.Equal(t, 2, body.TableID)
		assert.Equal(t, "2026-10-20T19:00", body.ReservationTime)

		w.Write([]byte(`{"id":7,"customerName":"quan","partySize":4,"reservationTime":"2026-10-20T19:00","table":{"id":2},"status":"CONFIRMED"}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).UpdateReservation(context.Background(), 7, models.ReservationRequest{
		CustomerName:    "quan",
		CustomerPhone:   "0934016724",
		PartySize:       4,
		ReservationTime: "2026-10-20T19:00",
		TableID:         2,
		Status:          models.ReservationConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ID)
	assert.Equal(t, 2, res.TableID())
	assert.Equal(t, 4, res.PartySize)
}

func TestClient_SingleResources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/menu/10":
			w.Write([]byte(`{"id":10,"name":"Lamb Rack Herb Crust","price":429000,"allergens":"mustard"}`))
		case "/orders/30":
			w.Write([]byte(`{"id":30,"status":"COOKING","total":429000,"items":[{"menuItem":{"id":10,"name":"Lamb Rack Herb Crust"},"quantity":1,"price":429000}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Không tìm thấy"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	item, err := c.MenuItem(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Lamb Rack Herb Crust", item.Name)
	assert.Equal(t, "mustard", item.Allergens)

	order, err := c.Order(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCooking, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 10, order.Items[0].MenuItem.ID)

	_, err = c.MenuItem(context.Background(), 99)
	assert.Equal(t, "Không tìm thấy", Message(err, "fallback"))
}
