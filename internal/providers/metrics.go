package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsight_provider_requests_total",
		Help: "Total number of upstream provider requests",
	}, []string{"provider"})

	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsight_provider_failures_total",
		Help: "Total number of failed upstream provider requests",
	}, []string{"provider"})
)
