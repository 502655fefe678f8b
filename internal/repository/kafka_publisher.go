package repository

import (
	"context"

	"Quantra/internal/domain/models"
	"Quantra/internal/domain/repository"
	pkgkafka "Quantra/pkg/kafka"
)

// KafkaPublisher fans ticks and executed paper trades out to Kafka topics.
type KafkaPublisher struct {
	producer   *pkgkafka.Producer
	tickTopic  string
	tradeTopic string
}

// NewKafkaPublisher creates a publisher over an existing producer.
func NewKafkaPublisher(producer *pkgkafka.Producer, tickTopic, tradeTopic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, tickTopic: tickTopic, tradeTopic: tradeTopic}
}

func (p *KafkaPublisher) PublishTick(ctx context.Context, t *models.Tick) error {
	return p.producer.Publish(ctx, p.tickTopic, []byte(t.Symbol), tickPayload(t))
}

func (p *KafkaPublisher) PublishTickBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{Key: []byte(t.Symbol), Value: tickPayload(t)}
	}
	return p.producer.PublishBatch(ctx, p.tickTopic, msgs)
}

func (p *KafkaPublisher) PublishTrade(ctx context.Context, tr *models.Trade) error {
	return p.producer.Publish(ctx, p.tradeTopic, []byte(tr.Symbol), map[string]interface{}{
		"id":         tr.ID,
		"session_id": tr.SessionID,
		"symbol":     tr.Symbol,
		"side":       tr.Side,
		"qty":        tr.Quantity,
		"price":      tr.Price,
		"value":      tr.Value,
		"reason":     tr.Reason,
		"ts":         tr.Timestamp.Unix(),
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func tickPayload(t *models.Tick) map[string]interface{} {
	return map[string]interface{}{
		"symbol": t.Symbol,
		"t":      t.Timestamp,
		"c":      t.Price,
		"v":      t.Volume,
	}
}
