// Package metrics defines and registers all custom Prometheus metrics of the
// admin console. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register with the default Prometheus registry on package init via
// promauto; /metrics on the console server exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "console"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionEventsTotal counts session transitions.
// Labels:
//   - event: login, register, logout, refresh, hydrate
//   - result: ok or the error kind (e.g. "invalid_credentials", "network")
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Total number of session transitions, by event and result.",
	},
	[]string{"event", "result"},
)

// ── List metrics ──────────────────────────────────────────────────────────────

// ListFetchesTotal counts list fetches that completed and were applied.
// Labels:
//   - view: list view name (e.g. "users", "audit_logs")
//   - result: "ok" or "error"
var ListFetchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "list_fetches_total",
		Help:      "Total number of list fetches applied to a view.",
	},
	[]string{"view", "result"},
)

// ListStaleResponsesTotal counts responses dropped because a newer query superseded them.
var ListStaleResponsesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "list_stale_responses_total",
		Help:      "Total number of list responses discarded because a newer query was issued.",
	},
	[]string{"view"},
)

// MutationsTotal counts bulk and single-entity mutations.
// Labels:
//   - action: bulk_delete, bulk_enable, bulk_disable, delete, restore, purge, create, update
//   - result: "ok", "error", or "skipped" (client-side gate or empty diff)
var MutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Total number of mutating actions issued from the console.",
	},
	[]string{"action", "result"},
)

// ── API client metrics ────────────────────────────────────────────────────────

// APIRequestDuration measures admin API round trips.
// Labels:
//   - method: HTTP method
//   - route: route template (e.g. "/users/{id}")
//   - status: HTTP status code, or "error" on transport failure
var APIRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Duration of admin API requests issued by the console.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// APIRetriesTotal counts requests replayed after a token refresh.
var APIRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_retries_after_refresh_total",
		Help:      "Total number of requests retried once after a successful token refresh.",
	},
)
