// Package observability exposes session engine counters to Prometheus.
package observability

import (
	"chat-session/contract"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chat_session"

type Metrics struct {
	apiCalls         *prometheus.CounterVec
	heartbeatsMissed *prometheus.CounterVec
	framesDropped    prometheus.Counter
	reconnects       prometheus.Counter
}

var _ contract.Metrics = (*Metrics)(nil)

// NewMetrics creates the counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "Participant service calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		heartbeatsMissed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_missed_total",
			Help:      "Heartbeat acknowledgements that did not arrive in time.",
		}, []string{"kind"}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Inbound websocket frames that could not be decoded.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_requested_total",
			Help:      "Fresh connections requested after a broken socket.",
		}),
	}
	reg.MustRegister(m.apiCalls, m.heartbeatsMissed, m.framesDropped, m.reconnects)
	return m
}

func (m *Metrics) APICall(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.apiCalls.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) HeartbeatMissed(deep bool) {
	kind := "shallow"
	if deep {
		kind = "deep"
	}
	m.heartbeatsMissed.WithLabelValues(kind).Inc()
}

func (m *Metrics) FrameDropped() { m.framesDropped.Inc() }

func (m *Metrics) ReconnectRequested() { m.reconnects.Inc() }
