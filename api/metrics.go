package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "drawroom"

// Metrics holds the broker's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	connections  *prometheus.CounterVec
	messages     *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	deliveries   prometheus.Counter
	storeErrors  *prometheus.CounterVec
	forcedCloses *prometheus.CounterVec
}

// NewMetrics registers the broker collectors with reg. Session and room
// gauges read the registry at scrape time.
func NewMetrics(reg prometheus.Registerer, registry *SessionRegistry) *Metrics {
	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions",
		Help:      "Live WebSocket sessions.",
	}, func() float64 { return float64(registry.SessionCount()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "rooms",
		Help:      "Rooms with at least one live session.",
	}, func() float64 { return float64(registry.RoomCount()) })

	return &Metrics{
		connections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_total",
			Help:      "Connection attempts by outcome.",
		}, []string{"result"}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_received_total",
			Help:      "Valid inbound messages by channel and operation.",
		}, []string{"channel", "operation"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_dropped_total",
			Help:      "Inbound messages dropped without effect, by reason.",
		}, []string{"reason"}),
		deliveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deliveries_total",
			Help:      "Frames queued to sessions by the broadcast router.",
		}),
		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "store_errors_total",
			Help:      "Persistence gateway failures by operation.",
		}, []string{"operation"}),
		forcedCloses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "forced_closes_total",
			Help:      "Sessions closed by the broker, by close code.",
		}, []string{"code"}),
	}
}

func (m *Metrics) connection(result string) {
	if m != nil {
		m.connections.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) received(msg ClientMessage) {
	if m != nil {
		m.messages.WithLabelValues(msg.channel(), msg.operation()).Inc()
	}
}

func (m *Metrics) drop(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) delivered(n int) {
	if m != nil && n > 0 {
		m.deliveries.Add(float64(n))
	}
}

func (m *Metrics) storeError(operation string) {
	if m != nil {
		m.storeErrors.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) forcedClose(code int) {
	if m != nil {
		m.forcedCloses.WithLabelValues(strconv.Itoa(code)).Inc()
	}
}
