// Package backend is the REST client for the restaurant backend: menu,
// tables, reservations, orders, billing and authentication.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/models"
)

// TokenSource supplies the bearer token and is told when the backend
// rejects it.
type TokenSource interface {
	AuthToken() string
	InvalidateSession()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource attaches the session token to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     logrus.FieldLogger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "backend")
	return c
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the answer to a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Menu lists every dish (GET /menu).
func (c *Client) Menu(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := c.do(ctx, http.MethodGet, "/menu", nil, nil, &items)
	return items, err
}

// MenuItem fetches one dish (GET /menu/{id}).
func (c *Client) MenuItem(ctx context.Context, id int) (models.MenuItem, error) {
	var item models.MenuItem
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/menu/%d", id), nil, nil, &item)
	return item, err
}

// Tables lists the dining tables (GET /tables).
func (c *Client) Tables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := c.do(ctx, http.MethodGet, "/tables", nil, nil, &tables)
	return tables, err
}

// Reservations lists all reservations (GET /reservations).
func (c *Client) Reservations(ctx context.Context) ([]models.Reservation, error) {
	var res []models.Reservation
	err := c.do(ctx, http.MethodGet, "/reservations", nil, nil, &res)
	return res, err
}

// CreateReservation books a table (POST /reservations).
func (c *Client) CreateReservation(ctx context.Context, req models.ReservationRequest) (models.Reservation, error) {
	var res models.Reservation
	err := c.do(ctx, http.MethodPost, "/reservations", nil, req, &res)
	return res, err
}

// UpdateReservation replaces a reservation (PUT /reservations/{id}).
func (c *Client) UpdateReservation(ctx context.Context, id int, req models.ReservationRequest) (models.Reservation, error) {
	var res models.Reservation
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/reservations/%d", id), nil, req, &res)
	return res, err
}

// CancelReservation deletes a reservation (DELETE /reservations/{id}).
func (c *Client) CancelReservation(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/reservations/%d", id), nil, nil, nil)
}

// CreateOrder places an order (POST /orders).
func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	var order models.Order
	err := c.do(ctx, http.MethodPost, "/orders", nil, req, &order)
	return order, err
}

// Orders lists all orders (GET /orders).
func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, http.MethodGet, "/orders", nil, nil, &orders)
	return orders, err
}

// Order fetches one order (GET /orders/{id}).
func (c *Client) Order(ctx context.Context, id int) (models.Order, error) {
	var order models.Order
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &order)
	return order, err
}

// CreateInvoice bills an order (POST /billing/invoice/{orderId}).
func (c *Client) CreateInvoice(ctx context.Context, orderID int) (models.Invoice, error) {
	var inv models.Invoice
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/billing/invoice/%d", orderID), nil, nil, &inv)
	return inv, err
}

// Pay settles an invoice (POST /billing/pay/{invoiceId}?amount&method).
func (c *Client) Pay(ctx context.Context, invoiceID int, amount float64, method models.PaymentMethod) error {
	q := url.Values{}
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	q.Set("method", string(method))
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/billing/pay/%d", invoiceID), q, nil, nil)
}

// Login exchanges credentials for a token (POST /auth/login).
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &resp)
	return resp, err
}

// Register creates an account (POST /auth/register).
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, req, nil)
}

// Me returns the logged-in user (GET /auth/me).
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u)
	return u, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s", method, path)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return errors.Wrapf(err, "building %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AuthToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, data)
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
			c.tokens.InvalidateSession()
		}
		c.log.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Warn(apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decoding %s %s", method, path)
	}
	return nil
}
