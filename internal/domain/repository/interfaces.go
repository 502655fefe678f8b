package repository

import (
	"context"
	"time"

	"Quantra/internal/domain/models"
)

// MarketStream is a live trade feed for a set of symbols.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher fans ticks and trade events out to downstream consumers.
type Publisher interface {
	PublishTick(ctx context.Context, t *models.Tick) error
	PublishTickBatch(ctx context.Context, ticks []*models.Tick) error
	PublishTrade(ctx context.Context, tr *models.Trade) error
	Close() error
}

// CandleStore persists OHLCV bars and serves training/backtest history.
type CandleStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, c *models.Candle) error
	StoreBatch(ctx context.Context, candles []*models.Candle) error
	Query(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	LatestN(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// PriceSource serves candle history and spot prices from an external venue.
// It backs CandleStore misses during training and live evaluation.
type PriceSource interface {
	Klines(ctx context.Context, symbol string, tf Timeframe, from, to time.Time, limit int) ([]models.Candle, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// ModelStore persists fitted models and keeps a process-local cache.
type ModelStore interface {
	Save(model *models.TrainedModel) error
	Get(symbol string) (*models.TrainedModel, error)
	List() []models.ModelInfo
	Delete(symbol string) error
	LoadAll() (int, error)
}

// Metrics abstracts the counters and gauges the pipeline records.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordSignal(symbol, signal string)
	RecordRegime(symbol string, regime int)
	RecordEquity(sessionID string, equity float64)
}
