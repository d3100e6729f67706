package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters for HTTP traffic and task domain events.
type Metrics struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	tasksCreated     prometheus.Counter
	tasksDeleted     prometheus.Counter
	quotaRejections  prometheus.Counter
	subscriptions    *prometheus.CounterVec
	usersProvisioned prometheus.Counter
	webhookEvents    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers all collectors on reg. Pass a fresh registry in tests.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todo_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_http_errors_total",
			Help: "Error responses by route and error code.",
		}, []string{"method", "route", "code"}),
		tasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_tasks_created_total",
			Help: "Tasks created.",
		}),
		tasksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_tasks_deleted_total",
			Help: "Tasks deleted.",
		}),
		quotaRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_quota_rejections_total",
			Help: "Task creations rejected by the free-tier quota.",
		}),
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_subscription_changes_total",
			Help: "Subscription state changes by resulting state.",
		}, []string{"subscribed"}),
		usersProvisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_users_provisioned_total",
			Help: "User records created from identity events.",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_webhook_events_total",
			Help: "Identity webhook deliveries by event type and final state.",
		}, []string{"type", "state"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.errors,
		m.tasksCreated,
		m.tasksDeleted,
		m.quotaRejections,
		m.subscriptions,
		m.usersProvisioned,
		m.webhookEvents,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

func (m *Metrics) RecordTaskCreated() {
	if m != nil {
		m.tasksCreated.Inc()
	}
}

func (m *Metrics) RecordTaskDeleted() {
	if m != nil {
		m.tasksDeleted.Inc()
	}
}

func (m *Metrics) RecordQuotaRejection() {
	if m != nil {
		m.quotaRejections.Inc()
	}
}

func (m *Metrics) RecordSubscriptionChange(subscribed bool) {
	if m != nil {
		m.subscriptions.WithLabelValues(strconv.FormatBool(subscribed)).Inc()
	}
}

func (m *Metrics) RecordUserProvisioned() {
	if m != nil {
		m.usersProvisioned.Inc()
	}
}

// RecordWebhookEvent counts a delivery by its event type and final provisioning state.
func (m *Metrics) RecordWebhookEvent(eventType, state string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEvents.WithLabelValues(eventType, state).Inc()
}

// Handler exposes the registry for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
