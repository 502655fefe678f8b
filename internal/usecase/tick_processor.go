package usecase

import (
	"context"
	"fmt"
	"time"

	"Quantra/internal/domain/models"
	drepo "Quantra/internal/domain/repository"
)

// TickProcessor routes validated ticks to the configured backend: Kafka
// for the full pipeline, or straight into ClickHouse via the aggregator
// when running without a broker.
type TickProcessor struct {
	pub     drepo.Publisher
	store   drepo.CandleStore
	agg     *CandleAggregator
	metrics drepo.Metrics
	backend string
}

// NewTickProcessor creates a new TickProcessor instance.
func NewTickProcessor(
	pub drepo.Publisher,
	store drepo.CandleStore,
	agg *CandleAggregator,
	metrics drepo.Metrics,
	backend string,
) *TickProcessor {
	return &TickProcessor{
		pub:     pub,
		store:   store,
		agg:     agg,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single tick.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishTick(ctx, t)
	case "clickhouse":
		err = p.storeTick(ctx, t)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process tick: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, t.Symbol)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes multiple ticks in one shot.
func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishTickBatch(ctx, ticks)
	case "clickhouse":
		for _, t := range ticks {
			if e := p.storeTick(ctx, t); e != nil {
				err = e
				break
			}
		}
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, t := range ticks {
		p.metrics.RecordMessageSent(p.backend, t.Symbol)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// storeTick folds the tick into the open bar and writes any completed bar.
func (p *TickProcessor) storeTick(ctx context.Context, t *models.Tick) error {
	if done := p.agg.Add(t); done != nil {
		return p.store.Store(ctx, done)
	}
	return nil
}

// Close flushes open bars and releases backends.
func (p *TickProcessor) Close() {
	if p.agg != nil && p.store != nil {
		for _, c := range p.agg.Flush() {
			_ = p.store.Store(context.Background(), c)
		}
	}
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
