package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"qtrestaurant/internal/logging"
	"qtrestaurant/internal/proxy"
)

// maxChatBody caps a chat request body.
const maxChatBody = 64 << 10

// Chat answers POST /api/chat. The status is always 200; failures are
// reported through the reply's fallback flag.
func (a *ChatAPI) Chat(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxChatBody))
	if err != nil {
		c.JSON(http.StatusOK, a.Proxy.Reject(proxy.TransportHTTP))
		return
	}

	var req proxy.Request
	if err := json.Unmarshal(body, &req); err != nil {
		logging.FromContext(c.Request.Context(), a.log).WithError(err).Debug("undecodable chat request")
		c.JSON(http.StatusOK, a.Proxy.Reject(proxy.TransportHTTP))
		return
	}

	c.JSON(http.StatusOK, a.Proxy.Reply(c.Request.Context(), req, proxy.TransportHTTP))
}
