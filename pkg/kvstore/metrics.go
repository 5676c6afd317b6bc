package kvstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	StoreGetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_store_gets_total",
		Help: "Total number of store get operations",
	})

	StorePutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_store_puts_total",
		Help: "Total number of store put operations",
	})

	StoreErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_store_errors_total",
		Help: "Total number of store operations that failed",
	})
)
