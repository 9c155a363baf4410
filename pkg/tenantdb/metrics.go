package tenantdb

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	pools          prometheus.Gauge
	poolEvents     *prometheus.CounterVec
	acquireTotal   *prometheus.CounterVec
	acquireLatency prometheus.Histogram
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		pools: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "tenantcore",
			Subsystem: "tenantdb",
			Name:      "pools",
			Help:      "Number of tenant connection pools currently open.",
		}),
		poolEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "tenantdb",
			Name:      "pool_events_total",
			Help:      "Tenant pool lifecycle events.",
		}, []string{"event"}),
		acquireTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "tenantdb",
			Name:      "acquire_total",
			Help:      "Tenant session connection acquisitions by result.",
		}, []string{"result"}),
		acquireLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tenantcore",
			Subsystem: "tenantdb",
			Name:      "acquire_latency_seconds",
			Help:      "Latency of tenant session connection acquisition, retries included.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
