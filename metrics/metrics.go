package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)
)

var (
	OrdersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "orders_placed_total",
			Help:      "The total number of placed orders",
		},
		[]string{"payment_required"},
	)

	PaymentsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "payments_captured_total",
			Help:      "The total number of orders moved to paid",
		},
		[]string{"method"},
	)

	PaymentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "payment_failures_total",
			Help:      "The total number of failed authorizations and captures",
		},
		[]string{"reason"},
	)

	TicketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "issued_total",
			Help:      "The total number of minted tickets",
		},
	)

	// Redemptions is labeled by outcome: redeemed, not_found, already_redeemed, voided.
	Redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "redemptions_total",
			Help:      "The total number of redemption attempts",
		},
		[]string{"outcome"},
	)

	ReconciliationsRequired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tickets",
			Name:      "reconciliations_required_total",
			Help:      "The total number of captured orders that could not be fulfilled",
		},
	)
)
