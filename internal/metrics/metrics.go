// Package metrics содержит метрики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "astral"

// Metrics - счётчики решений о доступе, вебхуков и уведомлений.
type Metrics struct {
	accessDecisions *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	reviewItems     prometheus.Histogram
	notifications   *prometheus.CounterVec
}

// New регистрирует метрики в reg. Для nil используется prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		accessDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access decisions by result",
		}, []string{"result"}),
		webhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Identity webhook events by type and outcome",
		}, []string{"type", "outcome"}),
		reviewItems: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "queue_size",
			Help:      "Number of items in served review queues",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "notifications_total",
			Help:      "Published notifications by routing key and outcome",
		}, []string{"routing_key", "outcome"}),
	}
}

// AccessDecision учитывает решение о доступе.
func (m *Metrics) AccessDecision(granted bool) {
	result := "denied"
	if granted {
		result = "granted"
	}
	m.accessDecisions.WithLabelValues(result).Inc()
}

// WebhookEvent учитывает обработанное событие вебхука.
func (m *Metrics) WebhookEvent(eventType, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ReviewQueue учитывает размер выданной очереди повторения.
func (m *Metrics) ReviewQueue(size int) {
	m.reviewItems.Observe(float64(size))
}

// Notification учитывает попытку публикации уведомления.
func (m *Metrics) Notification(routingKey string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.notifications.WithLabelValues(routingKey, outcome).Inc()
}
