package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters/histograms for tool dispatch, booking and reminders.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	toolCalls       *prometheus.CounterVec
	toolLatency     *prometheus.HistogramVec
	bookingOutcomes *prometheus.CounterVec
	reminders       *prometheus.CounterVec
	plannerSteps    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitacare",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool dispatches by tool name and result status",
		}, []string{"tool", "status"}),
		toolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vitacare",
			Subsystem: "tools",
			Name:      "call_duration_seconds",
			Help:      "Latency of a single tool dispatch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		bookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitacare",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Booking and cancellation attempts by operation and outcome",
		}, []string{"operation", "outcome"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitacare",
			Subsystem: "reminders",
			Name:      "processed_total",
			Help:      "Medication reminders by bucket and outcome (sent, failed, skipped)",
		}, []string{"bucket", "outcome"}),
		plannerSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitacare",
			Subsystem: "agent",
			Name:      "planner_steps_total",
			Help:      "Planner steps by kind (tool_call, reply, error, limit)",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.toolCalls, m.toolLatency, m.bookingOutcomes, m.reminders, m.plannerSteps)
	return m
}

func (m *Metrics) ObserveToolCall(tool, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingOutcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveReminders(bucket string, sent, failed, skipped int) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(bucket, "sent").Add(float64(sent))
	m.reminders.WithLabelValues(bucket, "failed").Add(float64(failed))
	m.reminders.WithLabelValues(bucket, "skipped").Add(float64(skipped))
}

func (m *Metrics) ObservePlannerStep(kind string) {
	if m == nil {
		return
	}
	m.plannerSteps.WithLabelValues(kind).Inc()
}
