package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbConns, dbTxRetries) }

var (
	dbConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // total | idle | acquired | max
	)
	dbTxRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_tx_retries_total",
			Help: "Transactions retried after a serialization failure or deadlock.",
		},
		[]string{"sqlstate"},
	)
)

// SetDBPoolStats publishes a pool snapshot.
func SetDBPoolStats(total, idle, acquired, max int32) {
	dbConns.WithLabelValues("total").Set(float64(total))
	dbConns.WithLabelValues("idle").Set(float64(idle))
	dbConns.WithLabelValues("acquired").Set(float64(acquired))
	dbConns.WithLabelValues("max").Set(float64(max))
}

func IncTxRetry(sqlState string) { dbTxRetries.WithLabelValues(sqlState).Inc() }
