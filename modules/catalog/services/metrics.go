package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	lookups *prometheus.CounterVec
	writes  *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		lookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "catalog",
			Name:      "lookups_total",
			Help:      "Descriptor lookups by source (cache, database) and result.",
		}, []string{"source", "result"}),
		writes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "catalog",
			Name:      "writes_total",
			Help:      "Descriptor create and edit operations by result.",
		}, []string{"operation", "result"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

func writeResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
