package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics exposes counters/histograms for the conversation pipeline.
type ChatMetrics struct {
	turnsTotal     *prometheus.CounterVec
	bookingsTotal  prometheus.Counter
	oracleDegraded prometheus.Counter
	turnLatency    *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cancermitr",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total chat turns processed, by outcome",
		}, []string{"outcome"}),
		bookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cancermitr",
			Subsystem: "chat",
			Name:      "bookings_total",
			Help:      "Total appointments booked through chat",
		}),
		oracleDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cancermitr",
			Subsystem: "chat",
			Name:      "oracle_degraded_total",
			Help:      "Total turns where the oracle reply was degraded",
		}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cancermitr",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end chat turn latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.bookingsTotal, m.oracleDegraded, m.turnLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnLatency.WithLabelValues(outcome).Observe(took.Seconds())
}

func (m *ChatMetrics) BookingCreated() {
	if m == nil {
		return
	}
	m.bookingsTotal.Inc()
}

func (m *ChatMetrics) OracleDegraded() {
	if m == nil {
		return
	}
	m.oracleDegraded.Inc()
}
