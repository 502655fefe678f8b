package usecase

import (
	"context"
	"encoding/json"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
	pkgkafka "Quantra/pkg/kafka"
)

// KafkaTicksHandler consumes tick messages, folds them into bars, and
// writes completed bars to the candle store.
type KafkaTicksHandler struct {
	topic   string
	store   domrepo.CandleStore
	agg     *CandleAggregator
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, store domrepo.CandleStore, agg *CandleAggregator, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, store: store, agg: agg, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, c, v}
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	done := h.agg.Add(&models.Tick{
		Symbol:    m.Symbol,
		Timestamp: m.T,
		Price:     m.C,
		Volume:    m.V,
	})
	if done == nil {
		return nil
	}

	start := time.Now()
	err := h.store.Store(ctx, done)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", m.Symbol)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
