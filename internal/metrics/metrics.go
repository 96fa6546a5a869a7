package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DonationsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donations_initiated_total",
		Help: "Donation records created, by donation type.",
	}, []string{"type"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "donation_webhook_events_total",
		Help: "Provider webhook deliveries, by event type and outcome.",
	}, []string{"type", "outcome"})

	RemoteCancelFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "donation_remote_cancel_failures_total",
		Help: "Failed best-effort provider subscription cancellations.",
	})

	ReconcileUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "donation_reconcile_updates_total",
		Help: "Stale pending donations resolved by the reconciliation sweep.",
	})
)

const (
	OutcomeApplied  = "applied"
	OutcomeReplayed = "replayed"
	OutcomeIgnored  = "ignored"
	OutcomeNoMatch  = "no_match"
	OutcomeFailed   = "failed"
)
