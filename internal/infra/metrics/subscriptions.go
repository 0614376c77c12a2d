package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsExpiredTotal,
		subscriptionTransitionsTotal,
		subscriptionsActive,
		meteringEventsTotal,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Total number of subscriptions flipped to expired by housekeeping.",
		},
	)

	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Subscription state transitions by action.",
		},
		[]string{"action"}, // SUBSCRIBED|RENEWED|UPGRADED|DOWNGRADED|CANCELLED|EXPIRED
	)

	subscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscriptions_active",
			Help: "Subscriptions currently in force, sampled by the expiry worker.",
		},
	)

	meteringEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metering_events_total",
			Help: "Billable submission events by outcome mode.",
		},
		[]string{"mode"}, // unlimited|quota|fee|free
	)
)

func IncSubscriptionsExpired(count int) {
	subscriptionsExpiredTotal.Add(float64(count))
}

func IncSubscriptionTransition(action string) {
	subscriptionTransitionsTotal.WithLabelValues(norm(action)).Inc()
}

func SetSubscriptionsActive(n int) {
	subscriptionsActive.Set(float64(n))
}

func IncMeteringEvent(mode string) {
	meteringEventsTotal.WithLabelValues(norm(mode)).Inc()
}
