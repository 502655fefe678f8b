package usecase

import (
	"context"
	"fmt"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
	applogger "Quantra/pkg/logger"
)

// HistoryProvider serves candle history with a fallback chain: the local
// ClickHouse store first, then the exchange REST API. A range served from
// the exchange is written back to the store so the next request is local.
type HistoryProvider struct {
	store  domrepo.CandleStore
	source domrepo.PriceSource
	l      *applogger.Logger
}

func NewHistoryProvider(store domrepo.CandleStore, source domrepo.PriceSource, l *applogger.Logger) *HistoryProvider {
	return &HistoryProvider{store: store, source: source, l: l}
}

// Daily returns ascending daily candles covering the last `days` days up to
// and including `until`.
func (h *HistoryProvider) Daily(ctx context.Context, symbol string, days int, until time.Time) ([]models.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive")
	}
	from := until.AddDate(0, 0, -days)
	return h.Range(ctx, symbol, from, until, domrepo.TF1d)
}

// Range returns ascending candles for [from, to]. A store miss or an
// obviously gappy result falls through to the exchange.
func (h *HistoryProvider) Range(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	if from.After(to) {
		return nil, fmt.Errorf("from must be <= to")
	}

	var stored []models.Candle
	if h.store != nil {
		var err error
		stored, err = h.store.Query(ctx, symbol, from, to, tf)
		if err != nil && h.l != nil {
			h.l.Warn("candle store query failed, falling back",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		if len(stored) >= expectedBars(from, to, tf) {
			return stored, nil
		}
	}

	if h.source == nil {
		if len(stored) > 0 {
			return stored, nil
		}
		return nil, models.ErrPriceUnavailable
	}

	fetched, err := h.source.Klines(ctx, symbol, tf, from, to, 0)
	if err != nil {
		// partial local data beats nothing
		if len(stored) > 0 {
			return stored, nil
		}
		return nil, err
	}
	if len(fetched) == 0 {
		if len(stored) > 0 {
			return stored, nil
		}
		return nil, models.ErrPriceUnavailable
	}

	if h.store != nil {
		ptrs := make([]*models.Candle, len(fetched))
		for i := range fetched {
			ptrs[i] = &fetched[i]
		}
		if err := h.store.StoreBatch(ctx, ptrs); err != nil && h.l != nil {
			h.l.Warn("candle backfill failed",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
	}
	return fetched, nil
}

// LastPrice tries the exchange spot price, then the latest stored close.
func (h *HistoryProvider) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if h.source != nil {
		p, err := h.source.LastPrice(ctx, symbol)
		if err == nil && p > 0 {
			return p, nil
		}
	}
	if h.store != nil {
		cs, err := h.store.LatestN(ctx, symbol, 1, domrepo.TF1d)
		if err == nil && len(cs) == 1 && cs[0].Close > 0 {
			return cs[0].Close, nil
		}
	}
	return 0, models.ErrPriceUnavailable
}

// expectedBars is a coverage heuristic: below 90 percent of the nominal bar
// count, the stored range is treated as gappy.
func expectedBars(from, to time.Time, tf domrepo.Timeframe) int {
	var per time.Duration
	switch tf {
	case domrepo.TF1h:
		per = time.Hour
	case domrepo.TF4h:
		per = 4 * time.Hour
	default:
		per = 24 * time.Hour
	}
	n := int(to.Sub(from) / per)
	return n * 9 / 10
}
