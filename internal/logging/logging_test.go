package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(Config{Level: "debug", Format: "json"}, &buf)

	log.WithField("request_id", "abc").Info("chat reply")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "chat reply", line["message"])
	assert.Equal(t, "info", line["severity"])
	assert.Equal(t, "abc", line["request_id"])
	assert.Equal(t, logrus.DebugLevel, log.Level)
}

func TestNew_BadLevelDefaultsToInfo(t *testing.T) {
	log := NewWithOutput(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.Level)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := NewWithOutput(Config{Level: "debug", Format: "json"}, &buf)

	router := gin.New()
	router.Use(Middleware(log))
	router.GET("/health", func(c *gin.Context) {
		assert.Equal(t, "req-1", RequestID(c.Request.Context()))
		FromContext(c.Request.Context(), nil).Info("inside")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"http.req.id":"req-1"`)
	assert.Contains(t, buf.String(), `"http.resp.status":200`)

	fallback := logrus.New()
	assert.Equal(t, fallback, FromContext(req.Context(), fallback))
}
