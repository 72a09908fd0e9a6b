package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HubMetrics tracks live connections, groups and broadcast traffic.
type HubMetrics struct {
	registry    *prometheus.Registry
	connections prometheus.Gauge
	groups      prometheus.Gauge
	broadcasts  *prometheus.CounterVec
	dropped     prometheus.Counter
}

// NewHubMetrics registers the hub collectors on a private registry.
func NewHubMetrics() *HubMetrics {
	m := &HubMetrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notewiz",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open hub connections.",
		}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notewiz",
			Subsystem: "ws",
			Name:      "groups",
			Help:      "Groups with at least one member.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notewiz",
			Subsystem: "ws",
			Name:      "broadcasts_total",
			Help:      "Broadcasts by server event kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notewiz",
			Subsystem: "ws",
			Name:      "dropped_messages_total",
			Help:      "Messages discarded from full send queues.",
		}),
	}
	m.registry.MustRegister(
		m.connections,
		m.groups,
		m.broadcasts,
		m.dropped,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *HubMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HubMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// All methods tolerate a nil receiver so tests can skip metrics entirely.

func (m *HubMetrics) connectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *HubMetrics) connectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *HubMetrics) groupCreated() {
	if m != nil {
		m.groups.Inc()
	}
}

func (m *HubMetrics) groupDeleted() {
	if m != nil {
		m.groups.Dec()
	}
}

func (m *HubMetrics) broadcast(kind string) {
	if m != nil {
		m.broadcasts.WithLabelValues(kind).Inc()
	}
}

func (m *HubMetrics) messageDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
