package monitoring

import (
	"sync"
	"time"

	"qtrestaurant/internal/intent"
)

// Monitor collects in-process metrics for the chat proxy's JSON status page
type Monitor struct {
	mu        sync.RWMutex
	info      map[string]interface{}
	counters  map[string]int
	latest    map[string]interface{}
	startTime time.Time
	resetAt   time.Time
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	now := time.Now()
	return &Monitor{
		info:      make(map[string]interface{}),
		counters:  make(map[string]int),
		latest:    make(map[string]interface{}),
		startTime: now,
		resetAt:   now,
	}
}

// SetInfo records a startup fact (provider, model, menu size) that survives
// ResetCounters.
func (m *Monitor) SetInfo(name string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info[name] = value
}

// Snapshot returns info, counters and the latest reply values in one map.
func (m *Monitor) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]interface{}, len(m.info)+len(m.counters)+len(m.latest)+2)
	for k, v := range m.info {
		out[k] = v
	}
	for k, v := range m.counters {
		out[k] = v
	}
	for k, v := range m.latest {
		out[k] = v
	}
	out["uptime_seconds"] = time.Since(m.startTime).Seconds()
	out["counting_since"] = m.resetAt.Format(time.RFC3339)
	return out
}

// ResetCounters zeroes the reply counters and returns what they were.
func (m *Monitor) ResetCounters() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.counters
	m.counters = make(map[string]int)
	m.latest = make(map[string]interface{})
	m.resetAt = time.Now()
	return prev
}

// ObserveReply counts a chat reply per transport and provider, and keeps the
// latest latency and fallback reason.
func (m *Monitor) ObserveReply(transport, provider string, reply intent.Reply, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters["chat_requests_total"]++
	m.counters[transport+"_requests_total"]++
	if reply.Fallback {
		m.counters["chat_fallbacks_total"]++
		m.counters["fallback_"+reply.Error+"_total"]++
		m.latest["last_fallback_reason"] = reply.Error
	}
	if reply.AddsToCart() {
		m.counters["chat_add_to_cart_total"]++
	}

	prefix := provider + "_"
	m.latest[prefix+"last_latency_ms"] = elapsed.Milliseconds()
	m.latest[prefix+"last_reply_at"] = time.Now().Format(time.RFC3339)
}
