package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeProcessed = "processed"
	OutcomeAnonymous = "anonymous"
	OutcomeUnknown   = "unknown_type"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// EventMetrics records CRM event processing.
type EventMetrics struct {
	processed       *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	tasksCreated    *prometheus.CounterVec
	contactsCreated prometheus.Counter
}

// NewEventMetrics registers the CRM metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_events_processed_total",
		Help: "Tracking events processed, by type and outcome.",
	}, []string{"event_type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_event_processing_seconds",
		Help:    "Time spent processing one tracking event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	tasksCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_tasks_created_total",
		Help: "Follow-up tasks enqueued, by priority.",
	}, []string{"priority"})
	contactsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_contacts_created_total",
		Help: "Contacts created on first sight of an email.",
	})
	reg.MustRegister(processed, duration, tasksCreated, contactsCreated)
	return &EventMetrics{
		processed:       processed,
		duration:        duration,
		tasksCreated:    tasksCreated,
		contactsCreated: contactsCreated,
	}
}

// ObserveEvent counts one event and records how long it took.
func (m *EventMetrics) ObserveEvent(eventType, outcome string, elapsed time.Duration) {
	if m == nil || m.processed == nil {
		return
	}
	eventType = normalizeLabel(eventType)
	m.processed.WithLabelValues(eventType, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(eventType).Observe(elapsed.Seconds())
}

func (m *EventMetrics) IncTaskCreated(priority string) {
	if m == nil || m.tasksCreated == nil {
		return
	}
	m.tasksCreated.WithLabelValues(normalizeLabel(priority)).Inc()
}

func (m *EventMetrics) IncContactCreated() {
	if m == nil || m.contactsCreated == nil {
		return
	}
	m.contactsCreated.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
