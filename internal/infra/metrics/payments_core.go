package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		paymentCallbacksTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Invoices by status transition (created/paid/failed).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of paid invoices, labeled by currency.",
		},
		[]string{"currency"},
	)

	// outcome: accepted|duplicate|not_found|amount_mismatch|rejected|invalid
	paymentCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Gateway webhook deliveries by provider and reconciliation outcome.",
		},
		[]string{"provider", "outcome"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}

func IncPaymentCallback(provider, outcome string) {
	paymentCallbacksTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}
