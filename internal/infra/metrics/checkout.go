package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		checkoutInitiatedTotal,
		reconcileLatencySeconds,
	)
}

var (
	checkoutInitiatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_initiated_total",
			Help: "Checkout sessions initiated, labeled by outcome (ok/gateway_error).",
		},
		[]string{"outcome"},
	)

	reconcileLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_reconcile_seconds",
			Help:    "Latency of confirmation reconciliation, labeled by outcome.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)
)

func IncCheckoutInitiated(outcome string) {
	checkoutInitiatedTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveReconcile(outcome string, d time.Duration) {
	reconcileLatencySeconds.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}
