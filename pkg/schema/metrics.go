package schema

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	provisionTotal *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	stepsApplied   *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		provisionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "schema",
			Name:      "provision_total",
			Help:      "Total number of schema provisioning runs.",
		}, []string{"scope", "result"}),
		stepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tenantcore",
			Subsystem: "schema",
			Name:      "step_duration_seconds",
			Help:      "Duration of individual migration steps.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"scope"}),
		stepsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "schema",
			Name:      "steps_applied_total",
			Help:      "Total number of migration steps applied.",
		}, []string{"scope"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
