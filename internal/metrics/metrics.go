// Package metrics holds the Prometheus collectors for the CRM API. Collectors
// register with the default registry on package init via promauto and are
// served by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crm"

// HTTPRequestsTotal counts served requests.
// Labels:
//   - method: HTTP method
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	},
	[]string{"method", "status"},
)

// HTTPRequestDuration measures handler latency.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)

// NotificationsCreatedTotal counts persisted notifications by type.
var NotificationsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Total number of notifications persisted.",
	},
	[]string{"type"},
)

// RealtimeEventsTotal counts real-time pushes.
// Labels:
//   - event: event name (e.g. "notification:new")
//   - result: "delivered", "no_connection" or "buffer_full"
var RealtimeEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_total",
		Help:      "Total number of real-time event pushes, by outcome.",
	},
	[]string{"event", "result"},
)

// RealtimeConnections tracks open WebSocket connections.
var RealtimeConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_connections",
		Help:      "Current number of open WebSocket connections.",
	},
)

// EmailsTotal counts outbound mail.
// Label:
//   - result: "enqueued", "sent" or "failed"
var EmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_total",
		Help:      "Total number of outbound emails, by outcome.",
	},
	[]string{"result"},
)

// SideEffectFailuresTotal counts best-effort steps that failed after the
// primary mutation committed.
// Label:
//   - step: "activity", "notification", "email"
var SideEffectFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "side_effect_failures_total",
		Help:      "Total number of best-effort side effects that failed.",
	},
	[]string{"step"},
)

// LeadConflictsTotal counts lead updates rejected by the version check.
var LeadConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lead_conflicts_total",
		Help:      "Total number of lead updates rejected because of a concurrent write.",
	},
)
