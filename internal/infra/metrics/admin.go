package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(adminActionsTotal) }

var adminActionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_actions_total",
		Help: "Tracks admin billing actions.",
	},
	[]string{"action", "status"}, // action: approve|reject|adjust; status: ok|unauthorized|already_processed|error
)

func IncAdminAction(action, status string) {
	adminActionsTotal.WithLabelValues(norm(action), norm(status)).Inc()
}
