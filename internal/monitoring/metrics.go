package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qtrestaurant/internal/intent"
)

// Metrics is the Prometheus view of the chat proxy. It owns its registry so
// several instances can coexist in tests.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	items     prometheus.Counter
}

// NewMetrics registers the chat collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qt",
			Name:      "chat_requests_total",
			Help:      "Chat requests answered, by transport and outcome.",
		}, []string{"transport", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qt",
			Name:      "chat_fallbacks_total",
			Help:      "Fallback replies, by reason.",
		}, []string{"reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qt",
			Name:      "chat_reply_seconds",
			Help:      "Time to answer a chat request.",
			Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qt",
			Name:      "chat_items_returned_total",
			Help:      "Dish names returned with add_to_cart replies.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.fallbacks,
		m.latency,
		m.items,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveReply implements proxy.Observer
func (m *Metrics) ObserveReply(transport, provider string, reply intent.Reply, elapsed time.Duration) {
	outcome := "ok"
	if reply.Fallback {
		outcome = "fallback"
		m.fallbacks.WithLabelValues(reply.Error).Inc()
	}
	m.requests.WithLabelValues(transport, outcome).Inc()
	m.latency.WithLabelValues(provider).Observe(elapsed.Seconds())
	if reply.AddsToCart() {
		m.items.Add(float64(len(reply.Items)))
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
