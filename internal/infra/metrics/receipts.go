package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(receiptsTotal) }

var receiptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "receipts_total",
		Help: "Payment receipts by lifecycle event.",
	},
	[]string{"status"}, // 'submitted', 'approved', 'rejected'
)

func IncReceipt(status string) {
	receiptsTotal.WithLabelValues(norm(status)).Inc()
}
