// Package metrics registers the service's Prometheus collectors on the
// default registry, exposed through /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimsTotal counts claim outcomes: "accepted" or a denial reason.
	ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "claims_total",
		Help:      "Claim outcomes by result.",
	}, []string{"outcome"})

	// ClaimDuration observes end-to-end claim processing time.
	ClaimDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eco",
		Name:      "claim_duration_seconds",
		Help:      "Claim processing latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// SpendsTotal counts spend outcomes: "accepted" or "insufficient_balance".
	SpendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "spends_total",
		Help:      "Spend outcomes by result.",
	}, []string{"outcome"})

	// LedgerAppendsTotal counts settled appends by kind.
	LedgerAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "ledger_appends_total",
		Help:      "Transactions appended to the ledger by kind.",
	}, []string{"kind"})

	// BadgeGrantsTotal counts new badge grants by type.
	BadgeGrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "badge_grants_total",
		Help:      "Badge grants by badge type.",
	}, []string{"badge_type"})
)
