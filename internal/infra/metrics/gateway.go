package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayCallDuration,
		gatewayTimeoutsTotal,
	)
}

var (
	// Latency of outbound gateway calls.
	// op: create|verify|cancel|refund
	gatewayCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_duration_seconds",
			Help:    "Duration of payment gateway calls in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "op", "success"},
	)

	gatewayTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_timeouts_total",
			Help: "Gateway calls abandoned after the configured timeout.",
		},
		[]string{"provider", "op"},
	)
)

func ObserveGatewayCall(provider, op string, success bool, d time.Duration) {
	gatewayCallDuration.WithLabelValues(norm(provider), norm(op), strconv.FormatBool(success)).Observe(d.Seconds())
}

func IncGatewayTimeout(provider, op string) {
	gatewayTimeoutsTotal.WithLabelValues(norm(provider), norm(op)).Inc()
}
