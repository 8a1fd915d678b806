package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtu_purchases_total",
			Help: "Total number of purchase attempts by terminal state",
		},
		[]string{"category", "provider", "status"},
	)

	RefundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vtu_refunds_total",
			Help: "Total number of compensating refunds issued",
		},
	)

	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtu_provider_requests_total",
			Help: "Total number of provider purchase calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	RequeryResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtu_requery_resolutions_total",
			Help: "Total number of ambiguous transactions resolved by the reconciliation job",
		},
		[]string{"result"},
	)

	ManualReviewTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vtu_manual_review_total",
			Help: "Total number of transactions flagged for manual reconciliation",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vtu_notifications_total",
			Help: "Total number of notification emails by delivery status",
		},
		[]string{"kind", "status"},
	)
)
