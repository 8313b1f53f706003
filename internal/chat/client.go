// Package chat is the client side of the assistant: the intent service that
// talks to the chat proxy, and the pipeline that grounds its replies in the
// menu and applies them to the cart.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/intent"
	"qtrestaurant/internal/models"
)

// Sender sends one message to the assistant. Implementations never fail:
// every path yields a reply.
type Sender interface {
	Send(ctx context.Context, message string, history []models.ChatTurn, cart []models.CartEntry) intent.Reply
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithHistoryLimit bounds the history sent per request.
func WithHistoryLimit(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithUserID tags requests with the current user.
func WithUserID(fn func() string) ClientOption {
	return func(c *Client) { c.userID = fn }
}

// WithClientLogger sets the logger.
func WithClientLogger(log logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.log = log }
}

// Client is the chat intent service over POST /api/chat.
type Client struct {
	url          string
	http         *http.Client
	historyLimit int
	userID       func() string
	log          logrus.FieldLogger
}

// NewClient creates a client for the chat endpoint at url.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:          url,
		http:         &http.Client{Timeout: 45 * time.Second},
		historyLimit: 4,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "chat")
	return c
}

type chatRequest struct {
	Message string             `json:"message"`
	History []models.ChatTurn  `json:"history"`
	Cart    []models.CartEntry `json:"cart,omitempty"`
	UserID  string             `json:"userId,omitempty"`
}

// Send implements Sender. Transport errors, non-2xx answers and payloads
// without usable text all fall back to the keyword reply.
func (c *Client) Send(ctx context.Context, message string, history []models.ChatTurn, cart []models.CartEntry) intent.Reply {
	body := chatRequest{
		Message: message,
		History: models.LastTurns(history, c.historyLimit),
		Cart:    cart,
	}
	if c.userID != nil {
		body.UserID = c.userID()
	}

	data, err := json.Marshal(body)
	if err != nil {
		c.log.WithError(err).Error("encoding chat request")
		return KeywordReply(message)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		c.log.WithError(err).Error("building chat request")
		return KeywordReply(message)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("chat endpoint unreachable")
		return KeywordReply(message)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.WithError(err).Warn("reading chat reply")
		return KeywordReply(message)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithField("status", resp.StatusCode).Warn("chat endpoint error")
		return KeywordReply(message)
	}

	reply, err := intent.Decode(raw)
	if err != nil {
		c.log.WithError(err).Warn("invalid chat reply")
		return KeywordReply(message)
	}
	if reply.Items == nil {
		reply.Items = []string{}
	}
	return reply
}

var _ Sender = (*Client)(nil)
