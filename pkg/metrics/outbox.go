package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts publisher outcomes per topic.
type OutboxMetrics struct {
	published    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpadcs_outbox_published_total",
		Help: "Outbox events published to Pub/Sub.",
	}, []string{"topic", "event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpadcs_outbox_publish_failures_total",
		Help: "Publish attempts that will be retried.",
	}, []string{"topic", "event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpadcs_outbox_dead_lettered_total",
		Help: "Outbox events moved to the dead-letter table.",
	}, []string{"reason"})
	reg.MustRegister(published, failed, deadLettered)
	return &OutboxMetrics{published: published, failed: failed, deadLettered: deadLettered}
}

func (o *OutboxMetrics) ObservePublished(topic, eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(topic), normalizeLabel(eventType)).Inc()
}

func (o *OutboxMetrics) ObserveFailed(topic, eventType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(topic), normalizeLabel(eventType)).Inc()
}

func (o *OutboxMetrics) ObserveDeadLettered(reason string) {
	if o == nil || o.deadLettered == nil {
		return
	}
	o.deadLettered.WithLabelValues(normalizeLabel(reason)).Inc()
}
