package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	BuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_snapshot_builds_total",
		Help: "Total number of daily snapshots assembled",
	})

	BuildFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsight_snapshot_build_failures_total",
		Help: "Total number of failed snapshot builds",
	})
)
