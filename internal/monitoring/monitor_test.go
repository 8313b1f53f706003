package monitoring

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtrestaurant/internal/intent"
)

func TestMonitor_SnapshotIncludesInfo(t *testing.T) {
	m := NewMonitor()
	m.SetInfo("provider", "groq")
	m.SetInfo("menu_dishes", 12)

	snap := m.Snapshot()

	assert.Equal(t, "groq", snap["provider"])
	assert.Equal(t, 12, snap["menu_dishes"])
	assert.Contains(t, snap, "uptime_seconds")
	assert.Contains(t, snap, "counting_since")
}

func TestMonitor_ObserveReply(t *testing.T) {
	m := NewMonitor()

	m.ObserveReply("http", "groq", intent.Reply{Text: "ok", Action: intent.ActionAddToCart, Items: []string{"Tiramisu Classic"}}, 120*time.Millisecond)
	m.ObserveReply("websocket", "groq", intent.FallbackReply("xin lỗi", "timeout"), 30*time.Second)

	snap := m.Snapshot()

	assert.Equal(t, 2, snap["chat_requests_total"])
	assert.Equal(t, 1, snap["http_requests_total"])
	assert.Equal(t, 1, snap["websocket_requests_total"])
	assert.Equal(t, 1, snap["chat_fallbacks_total"])
	assert.Equal(t, 1, snap["fallback_timeout_total"])
	assert.Equal(t, 1, snap["chat_add_to_cart_total"])
	assert.Equal(t, "timeout", snap["last_fallback_reason"])
	assert.Equal(t, int64(30000), snap["groq_last_latency_ms"])
	assert.Contains(t, snap, "groq_last_reply_at")
}

func TestMonitor_ResetCountersKeepsInfo(t *testing.T) {
	m := NewMonitor()
	m.SetInfo("provider", "gemini")
	m.ObserveReply("http", "gemini", intent.FallbackReply("xin lỗi", "timeout"), time.Second)

	prev := m.ResetCounters()
	assert.Equal(t, 1, prev["chat_requests_total"])
	assert.Equal(t, 1, prev["chat_fallbacks_total"])

	snap := m.Snapshot()
	assert.NotContains(t, snap, "chat_requests_total")
	assert.NotContains(t, snap, "last_fallback_reason")
	assert.Equal(t, "gemini", snap["provider"])
	assert.Contains(t, snap, "uptime_seconds")
}

func TestMetrics_ObserveReply(t *testing.T) {
	m := NewMetrics()

	m.ObserveReply("http", "groq", intent.Reply{Text: "ok", Action: intent.ActionAddToCart, Items: []string{"a", "b"}}, time.Second)
	m.ObserveReply("http", "groq", intent.FallbackReply("xin lỗi", "provider_error"), time.Second)
	m.ObserveReply("http", "groq", intent.FallbackReply("xin lỗi", "provider_error"), time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("http", "ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("http", "fallback")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.fallbacks.WithLabelValues("provider_error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.items))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveReply("websocket", "gemini", intent.Reply{Text: "ok"}, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `qt_chat_requests_total{outcome="ok",transport="websocket"} 1`)
	assert.Contains(t, string(body), `qt_chat_reply_seconds_bucket{provider="gemini"`)
}
