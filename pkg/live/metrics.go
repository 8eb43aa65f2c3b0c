package live

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the controller's instrumentation. A nil *Metrics is valid
// and records nothing, so instrumentation stays optional.
type Metrics struct {
	SessionsActive  prometheus.Gauge
	ConnectAttempts *prometheus.CounterVec
	FramesSent      prometheus.Counter
	ChunksPlayed    prometheus.Counter
	Interruptions   prometheus.Counter
	ToolCalls       *prometheus.CounterVec
	UsageSeconds    prometheus.Counter
}

// NewMetrics creates and registers the controller metrics. Passing a nil
// registerer leaves the collectors unregistered, which tests use to avoid
// the process-global default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxa",
			Name:      "sessions_active",
			Help:      "Number of live sessions currently active.",
		}),
		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxa",
			Name:      "connect_attempts_total",
			Help:      "Connection attempts by outcome.",
		}, []string{"outcome"}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxa",
			Name:      "capture_frames_sent_total",
			Help:      "Microphone frames sent upstream.",
		}),
		ChunksPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxa",
			Name:      "playback_chunks_total",
			Help:      "Decoded audio chunks scheduled for playback.",
		}),
		Interruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxa",
			Name:      "interruptions_total",
			Help:      "Barge-in interruptions applied to playback.",
		}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxa",
			Name:      "tool_calls_total",
			Help:      "Tool calls dispatched, by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		UsageSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxa",
			Name:      "usage_seconds_total",
			Help:      "Connected session seconds billed against the plan quota.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.SessionsActive,
			m.ConnectAttempts,
			m.FramesSent,
			m.ChunksPlayed,
			m.Interruptions,
			m.ToolCalls,
			m.UsageSeconds,
		)
	}
	return m
}

func (m *Metrics) sessionStarted() {
	if m != nil {
		m.SessionsActive.Inc()
	}
}

func (m *Metrics) sessionEnded() {
	if m != nil {
		m.SessionsActive.Dec()
	}
}

func (m *Metrics) connectAttempt(outcome string) {
	if m != nil {
		m.ConnectAttempts.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) frameSent() {
	if m != nil {
		m.FramesSent.Inc()
	}
}

func (m *Metrics) chunkPlayed() {
	if m != nil {
		m.ChunksPlayed.Inc()
	}
}

func (m *Metrics) interrupted() {
	if m != nil {
		m.Interruptions.Inc()
	}
}

func (m *Metrics) toolCall(tool, outcome string) {
	if m != nil {
		m.ToolCalls.WithLabelValues(tool, outcome).Inc()
	}
}

func (m *Metrics) usageBilled(seconds int) {
	if m != nil && seconds > 0 {
		m.UsageSeconds.Add(float64(seconds))
	}
}
