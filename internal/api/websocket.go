package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/intent"
	"qtrestaurant/internal/proxy"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 64 << 10
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware
	},
}

// wsConnection maintains one chat websocket. Requests on a connection are
// answered in the order they arrive.
type wsConnection struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
	proxy  *proxy.Service
	log    logrus.FieldLogger
}

// ChatWebSocket upgrades GET /api/chat/ws. Each text frame is a chat
// request; each reply frame is a chat reply with the same fallback policy
// as POST /api/chat.
func (a *ChatAPI) ChatWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.WithError(err).Warn("failed to upgrade connection")
		return
	}

	ws := &wsConnection{
		conn:  conn,
		send:  make(chan []byte, 16),
		proxy: a.Proxy,
		log:   a.log.WithField("conn_id", uuid.NewString()),
	}

	// Start the read and write pumps
	go ws.writePump()
	go ws.readPump()
}

// readPump pumps messages from the WebSocket connection to the proxy
func (c *wsConnection) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("websocket error")
			}
			break
		}

		c.handleMessage(ctx, message)
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

// writePump pumps messages from the server to the WebSocket connection
func (c *wsConnection) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// The channel was closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage answers one request frame
func (c *wsConnection) handleMessage(ctx context.Context, message []byte) {
	var req proxy.Request
	var reply intent.Reply
	if err := json.Unmarshal(message, &req); err != nil {
		c.log.WithError(err).Debug("undecodable websocket request")
		reply = c.proxy.Reject(proxy.TransportWebSocket)
	} else {
		reply = c.proxy.Reply(ctx, req, proxy.TransportWebSocket)
	}
	c.sendReply(reply)
}

// sendReply queues a reply frame
func (c *wsConnection) sendReply(reply intent.Reply) {
	data, err := json.Marshal(reply)
	if err != nil {
		c.log.WithError(err).Error("error marshaling reply")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.log.Warn("websocket buffer full, dropping reply")
	}
}

func (c *wsConnection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
