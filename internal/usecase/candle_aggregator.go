package usecase

import (
	"sync"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
)

// CandleAggregator folds a tick stream into OHLCV bars of one timeframe.
// A bar is emitted when the first tick of the next bucket arrives.
type CandleAggregator struct {
	tf     domrepo.Timeframe
	bucket time.Duration

	mu   sync.Mutex
	open map[string]*models.Candle
}

func NewCandleAggregator(tf domrepo.Timeframe) *CandleAggregator {
	var d time.Duration
	switch tf {
	case domrepo.TF1h:
		d = time.Hour
	case domrepo.TF4h:
		d = 4 * time.Hour
	default:
		d = 24 * time.Hour
	}
	return &CandleAggregator{tf: tf, bucket: d, open: make(map[string]*models.Candle)}
}

// Timeframe returns the aggregation resolution.
func (a *CandleAggregator) Timeframe() domrepo.Timeframe { return a.tf }

// Add folds one tick in. The returned candle is non-nil exactly when the
// tick rolled the symbol into a new bucket, and holds the completed bar.
func (a *CandleAggregator) Add(t *models.Tick) *models.Candle {
	if t == nil || t.Symbol == "" || t.Price <= 0 {
		return nil
	}
	bucket := time.Unix(t.Timestamp, 0).UTC().Truncate(a.bucket)

	a.mu.Lock()
	defer a.mu.Unlock()

	cur, ok := a.open[t.Symbol]
	if !ok || bucket.After(cur.Bucket) {
		a.open[t.Symbol] = &models.Candle{
			Bucket: bucket,
			Symbol: t.Symbol,
			Open:   t.Price,
			High:   t.Price,
			Low:    t.Price,
			Close:  t.Price,
			Volume: t.Volume,
		}
		if ok {
			done := *cur
			return &done
		}
		return nil
	}
	if bucket.Before(cur.Bucket) {
		// late tick from a closed bucket, drop it
		return nil
	}
	if t.Price > cur.High {
		cur.High = t.Price
	}
	if t.Price < cur.Low {
		cur.Low = t.Price
	}
	cur.Close = t.Price
	cur.Volume += t.Volume
	return nil
}

// Flush drains every open bar, used on shutdown.
func (a *CandleAggregator) Flush() []*models.Candle {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.Candle, 0, len(a.open))
	for _, c := range a.open {
		done := *c
		out = append(out, &done)
	}
	a.open = make(map[string]*models.Candle)
	return out
}
