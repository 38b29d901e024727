package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveToolCall("book_appointment", "success", 20*time.Millisecond)
	m.ObserveToolCall("book_appointment", "failed", 5*time.Millisecond)
	m.ObserveBooking("book", "conflict")
	m.ObserveReminders("morning", 2, 1, 3)
	m.ObservePlannerStep("tool_call")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("book_appointment", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingOutcomes.WithLabelValues("book", "conflict")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.reminders.WithLabelValues("morning", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.plannerSteps.WithLabelValues("tool_call")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveToolCall("x", "success", time.Second)
		m.ObserveBooking("book", "success")
		m.ObserveReminders("night", 1, 0, 0)
		m.ObservePlannerStep("reply")
	})
}
