package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
	"Quantra/internal/services/backtest"
	applogger "Quantra/pkg/logger"
)

// BacktestUseCase wires history to the walk-forward engine.
type BacktestUseCase struct {
	history *HistoryProvider
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewBacktestUseCase(history *HistoryProvider, metrics domrepo.Metrics, l *applogger.Logger) *BacktestUseCase {
	return &BacktestUseCase{history: history, metrics: metrics, l: l}
}

// Run parses the request range, fetches training plus test history in one
// span, and executes the engine.
func (uc *BacktestUseCase) Run(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error) {
	symbol := strings.ToUpper(req.Symbol)
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start_date must precede end_date")
	}
	trainDays := req.TrainDays
	if trainDays <= 0 {
		trainDays = 730
	}

	began := time.Now()
	candles, err := uc.history.Range(ctx, symbol, start.AddDate(0, 0, -trainDays), end, domrepo.TF1d)
	if err != nil {
		return nil, err
	}

	engine := backtest.NewEngine(req.Fee)
	if req.ShortWindow > 0 {
		engine.ShortSpan = req.ShortWindow
	}
	if req.LongWindow > 0 {
		engine.LongSpan = req.LongWindow
	}
	if req.NStates > 0 {
		engine.HMMCfg.NStates = req.NStates
	}

	var res *models.BacktestResult
	if req.Mode == backtest.ModeNaive {
		res, err = engine.RunNaive(ctx, symbol, candles, start, end)
	} else {
		res, err = engine.Run(ctx, symbol, candles, start, end)
	}
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordError("backtest")
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.RecordLatency("backtest", time.Since(began).Seconds())
	}
	if uc.l != nil {
		uc.l.Info("backtest completed",
			applogger.String("symbol", symbol),
			applogger.String("mode", res.Mode),
			applogger.Int("test_days", res.Metrics.TestDays),
			applogger.Int("trades", res.Metrics.TradeCount),
			applogger.Duration("duration_ms", time.Since(began)),
		)
	}
	return res, nil
}
