package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_cache_hits_total",
		Help: "Total number of cache hits",
	})

	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_cache_misses_total",
		Help: "Total number of cache misses (absent or stale)",
	})

	RefreshErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_cache_refresh_errors_total",
		Help: "Total number of failed upstream refreshes",
	})

	WriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_cache_write_failures_total",
		Help: "Total number of tolerated cache write failures",
	})
)
