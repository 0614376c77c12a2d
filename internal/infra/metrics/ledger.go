package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		ledgerTransactionsTotal,
		ledgerVolumeTotal,
		ledgerInsufficientTotal,
	)
}

var (
	ledgerTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Wallet transactions committed, by kind.",
		},
		[]string{"kind"},
	)

	ledgerVolumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_volume_total",
			Help: "Absolute monetary volume of wallet transactions, by kind.",
		},
		[]string{"kind"},
	)

	ledgerInsufficientTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_insufficient_balance_total",
			Help: "Debits refused because the balance would go negative, by kind.",
		},
		[]string{"kind"},
	)
)

func ObserveLedgerTransaction(kind string, amount decimal.Decimal) {
	ledgerTransactionsTotal.WithLabelValues(norm(kind)).Inc()
	ledgerVolumeTotal.WithLabelValues(norm(kind)).Add(amount.Abs().InexactFloat64())
}

func IncInsufficientBalance(kind string) {
	ledgerInsufficientTotal.WithLabelValues(norm(kind)).Inc()
}
