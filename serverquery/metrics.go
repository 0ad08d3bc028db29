package serverquery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for a session. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	commands        *prometheus.CounterVec
	commandDuration prometheus.Histogram
	events          *prometheus.CounterVec
	bytesReceived   prometheus.Counter
	pending         prometheus.Gauge
	state           prometheus.Gauge
}

// NewMetrics creates the session metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ts3query",
				Subsystem: "session",
				Name:      "commands_total",
				Help:      "Total number of completed commands by result",
			},
			[]string{"result"},
		),
		commandDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "ts3query",
				Subsystem: "session",
				Name:      "command_duration_seconds",
				Help:      "Time from sending a command to receiving its status line",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ts3query",
				Subsystem: "session",
				Name:      "events_total",
				Help:      "Total number of event notifications by family",
			},
			[]string{"family"},
		),
		bytesReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ts3query",
				Subsystem: "session",
				Name:      "bytes_received_total",
				Help:      "Total number of bytes read from the server",
			},
		),
		pending: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ts3query",
				Subsystem: "session",
				Name:      "pending_commands",
				Help:      "Number of commands waiting for a response",
			},
		),
		state: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ts3query",
				Subsystem: "session",
				Name:      "state",
				Help:      "Session state (0 disconnected, 1 handshaking, 2 connected, 3 closed)",
			},
		),
	}
}

// Command results used as label values.
const (
	resultOK     = "ok"
	resultError  = "error"
	resultClosed = "closed"
)

func (m *Metrics) commandDone(result string, sent time.Time) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(result).Inc()
	if !sent.IsZero() {
		m.commandDuration.Observe(time.Since(sent).Seconds())
	}
}

func (m *Metrics) commandsFailed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.commands.WithLabelValues(resultClosed).Add(float64(n))
}

func (m *Metrics) event(family string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(family).Inc()
}

func (m *Metrics) received(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *Metrics) setState(s State) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}
