// Package metrics exposes Prometheus metrics for the voice pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for go-jarvis.
type Metrics struct {
	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsOpened  prometheus.Counter
	SessionsClosed  prometheus.Counter
	SessionDuration prometheus.Histogram

	// Utterance metrics
	UtterancesReceived  prometheus.Counter
	UtterancesDelivered *prometheus.CounterVec // by outcome: delivered, empty
	UtterancesFailed    *prometheus.CounterVec // by stage
	UtterancesCancelled prometheus.Counter
	UtteranceDuration   prometheus.Histogram
	InFlight            prometheus.Gauge

	// Stage metrics
	StageDuration *prometheus.HistogramVec // by stage
	Intents       *prometheus.CounterVec   // by intent kind

	// Transport metrics
	MessagesReceived prometheus.Counter
	MessagesSent     prometheus.Counter
	MessagesDropped  prometheus.Counter
}

// New creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "jarvis_active_sessions",
			Help: "Current number of connected sessions",
		}),
		SessionsOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_sessions_opened_total",
			Help: "Total number of sessions opened",
		}),
		SessionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_sessions_closed_total",
			Help: "Total number of sessions closed",
		}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "jarvis_session_duration_seconds",
			Help:    "Lifetime of a session",
			Buckets: []float64{1, 10, 30, 60, 300, 900, 1800, 3600},
		}),

		UtterancesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_utterances_received_total",
			Help: "Total number of audio submissions accepted",
		}),
		UtterancesDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jarvis_utterances_delivered_total",
			Help: "Utterances that reached Delivered, by outcome",
		}, []string{"outcome"}),
		UtterancesFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jarvis_utterances_failed_total",
			Help: "Utterances that reached Failed, by stage",
		}, []string{"stage"}),
		UtterancesCancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_utterances_cancelled_total",
			Help: "Utterances discarded because their session disconnected",
		}),
		UtteranceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "jarvis_utterance_duration_seconds",
			Help:    "Time from audio received to terminal state",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "jarvis_utterances_in_flight",
			Help: "Utterances currently running a stage",
		}),

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jarvis_stage_duration_seconds",
			Help:    "Per-stage processing time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"stage", "result"}),
		Intents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jarvis_intents_total",
			Help: "Routed intents by kind",
		}, []string{"kind"}),

		MessagesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_ws_messages_received_total",
			Help: "Websocket messages received from clients",
		}),
		MessagesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_ws_messages_sent_total",
			Help: "Websocket messages written to clients",
		}),
		MessagesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_ws_messages_dropped_total",
			Help: "Outbound messages dropped because the send buffer was full or closed",
		}),
	}
}

// RecordSessionOpened tracks a new connection.
func (m *Metrics) RecordSessionOpened() {
	m.SessionsOpened.Inc()
	m.ActiveSessions.Inc()
}

// RecordSessionClosed tracks a disconnect and the session lifetime.
func (m *Metrics) RecordSessionClosed(durationSeconds float64) {
	m.SessionsClosed.Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordUtteranceReceived tracks an accepted audio submission.
func (m *Metrics) RecordUtteranceReceived() {
	m.UtterancesReceived.Inc()
}

// RecordUtteranceDelivered tracks a delivered utterance. empty is true when the
// transcript was silence and nothing was emitted.
func (m *Metrics) RecordUtteranceDelivered(empty bool, durationSeconds float64) {
	outcome := "delivered"
	if empty {
		outcome = "empty"
	}
	m.UtterancesDelivered.WithLabelValues(outcome).Inc()
	m.UtteranceDuration.Observe(durationSeconds)
}

// RecordUtteranceFailed tracks a failure at stage.
func (m *Metrics) RecordUtteranceFailed(stage string, durationSeconds float64) {
	m.UtterancesFailed.WithLabelValues(stage).Inc()
	m.UtteranceDuration.Observe(durationSeconds)
}

// RecordUtteranceCancelled tracks an utterance dropped on disconnect.
func (m *Metrics) RecordUtteranceCancelled() {
	m.UtterancesCancelled.Inc()
}

// RecordStage observes a single stage attempt.
func (m *Metrics) RecordStage(stage string, ok bool, durationSeconds float64) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.StageDuration.WithLabelValues(stage, result).Observe(durationSeconds)
}

// RecordIntent counts a routed intent.
func (m *Metrics) RecordIntent(kind string) {
	m.Intents.WithLabelValues(kind).Inc()
}

// RecordMessageReceived counts an inbound websocket message.
func (m *Metrics) RecordMessageReceived() {
	m.MessagesReceived.Inc()
}

// RecordMessageSent counts an outbound websocket message.
func (m *Metrics) RecordMessageSent() {
	m.MessagesSent.Inc()
}

// RecordMessageDropped counts an outbound message that never left the server.
func (m *Metrics) RecordMessageDropped() {
	m.MessagesDropped.Inc()
}
