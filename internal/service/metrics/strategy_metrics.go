package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	StrategyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quantra",
			Subsystem: "strategy",
			Name:      "latency_seconds",
			Help:      "Latency of strategy endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	StrategyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quantra",
			Subsystem: "strategy",
			Name:      "errors_total",
			Help:      "Errors by strategy endpoint",
		},
		[]string{"endpoint"},
	)

	ModelsTrained = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quantra",
			Subsystem: "strategy",
			Name:      "models_trained_total",
			Help:      "Completed model fits by symbol",
		},
		[]string{"symbol"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(StrategyLatency, StrategyErrors, ModelsTrained)
	})
}
