package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once       sync.Once
	collected  []prometheus.Collector
	registry   = prometheus.NewRegistry()
	registerer = prometheus.WrapRegistererWithPrefix("journal_", registry)
)

// register is called from init() in each area file.
func register(cs ...prometheus.Collector) {
	collected = append(collected, cs...)
}

// MustRegister registers the billing collectors plus the Go runtime and
// process collectors. Safe to call more than once.
func MustRegister() {
	once.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registerer.MustRegister(collected...)
	})
}

// Handler serves the billing registry. Collection errors are logged by
// promhttp and the remaining metrics are still served.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}
