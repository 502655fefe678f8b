package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	signals      *prometheus.CounterVec
	regime       *prometheus.GaugeVec
	equity       *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantra_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantra_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantra_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantra_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantra_signals_total",
				Help: "Signal evaluations by symbol and outcome",
			},
			[]string{"symbol", "signal"},
		),
		regime: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantra_regime",
				Help: "Last decoded canonical regime for a symbol",
			},
			[]string{"symbol"},
		),
		equity: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantra_session_equity",
				Help: "Paper session equity marked at the last price",
			},
			[]string{"session_id"},
		),
	}
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordSignal counts one signal evaluation outcome.
func (r *Recorder) RecordSignal(symbol, signal string) {
	r.signals.WithLabelValues(symbol, signal).Inc()
}

// RecordRegime publishes the last decoded regime.
func (r *Recorder) RecordRegime(symbol string, regime int) {
	r.regime.WithLabelValues(symbol).Set(float64(regime))
}

// RecordEquity publishes a paper session's marked equity.
func (r *Recorder) RecordEquity(sessionID string, equity float64) {
	r.equity.WithLabelValues(sessionID).Set(equity)
}
