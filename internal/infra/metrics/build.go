package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(buildInfo, startTime) }

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Always 1; labels carry the running build.",
		},
		[]string{"version", "commit", "go_version"},
	)
	startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "start_time_seconds",
		Help: "Unix time the billing service started.",
	})
)

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
	startTime.Set(float64(time.Now().Unix()))
}
