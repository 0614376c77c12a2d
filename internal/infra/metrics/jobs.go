package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(backgroundSweepsTotal) }

var backgroundSweepsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "background_sweeps_total",
		Help: "Background worker sweeps, labeled by job and result.",
	},
	[]string{"job", "result"}, // job: reconciler|expiry; result: ok|error|skipped
)

func IncSweep(job, result string) {
	backgroundSweepsTotal.WithLabelValues(norm(job), norm(result)).Inc()
}
