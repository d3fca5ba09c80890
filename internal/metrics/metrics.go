/**
 * @description
 * Prometheus metrics for the payments-service. Counters cover the settlement
 * and payout outcomes ops alert on; the HTTP middleware in internal/api feeds
 * the request histogram.
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementsTotal counts settlement deliveries by outcome:
	// success, partial, duplicate, failed.
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_settlements_total",
			Help: "Settlement deliveries processed, labelled by outcome.",
		},
		[]string{"outcome"},
	)

	// PayoutsTotal counts owner payout attempts by outcome:
	// transferred, failed, manual.
	PayoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_owner_payouts_total",
			Help: "Owner payout attempts, labelled by outcome.",
		},
		[]string{"outcome"},
	)

	// WebhookEventsTotal counts webhook deliveries by verification result:
	// accepted, invalid_signature, duplicate, ignored.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_webhook_events_total",
			Help: "Processor webhook deliveries, labelled by result.",
		},
		[]string{"result"},
	)

	// HTTPRequestDuration observes request latency per route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payments_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
