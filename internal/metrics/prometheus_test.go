package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordSessionOpened()
	m.RecordSessionOpened()
	m.RecordSessionClosed(1.5)

	if got := testutil.ToFloat64(m.ActiveSessions); got != 1 {
		t.Errorf("expected 1 active session, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsOpened); got != 2 {
		t.Errorf("expected 2 opened, got %v", got)
	}
}

func TestUtteranceOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordUtteranceDelivered(false, 0.5)
	m.RecordUtteranceDelivered(true, 0.1)
	m.RecordUtteranceFailed("transcribing", 0.2)
	m.RecordUtteranceFailed("transcribing", 0.2)

	if got := testutil.ToFloat64(m.UtterancesDelivered.WithLabelValues("empty")); got != 1 {
		t.Errorf("expected 1 empty delivery, got %v", got)
	}
	if got := testutil.ToFloat64(m.UtterancesFailed.WithLabelValues("transcribing")); got != 2 {
		t.Errorf("expected 2 transcribing failures, got %v", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Registering twice on distinct registries must not panic.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
