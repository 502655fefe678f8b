package backtest

import (
	"context"
	"time"

	"Quantra/internal/domain/models"
	"Quantra/internal/services/features"
	"Quantra/internal/services/hmm"
	"Quantra/internal/services/strategy"
	"Quantra/internal/services/svr"
)

// Backtest modes.
const (
	ModeWalkForward = "walkforward"
	ModeNaive       = "naive"
)

// Engine runs walk-forward evaluations. The model is fit exactly once, on
// history strictly before the start date; every test day then sees only the
// trailing decode window up to and including itself. A signal computed on
// day t earns day t+1's return, so no bar ever trades on information from
// its own close.
type Engine struct {
	HMMCfg    hmm.Config
	SVRCfg    svr.Config
	Fee       float64
	ShortSpan int
	LongSpan  int
}

// NewEngine builds an engine with the production fit settings.
func NewEngine(fee float64) *Engine {
	return &Engine{
		HMMCfg:    hmm.DefaultConfig(),
		SVRCfg:    svr.DefaultConfig(),
		Fee:       fee,
		ShortSpan: strategy.EMAShortSpan,
		LongSpan:  strategy.EMALongSpan,
	}
}

// splitRange finds the train/test index split for a date range.
func splitRange(candles []models.Candle, start, end time.Time) (trainEnd, testEnd int) {
	for trainEnd < len(candles) && candles[trainEnd].Bucket.Before(start) {
		trainEnd++
	}
	testEnd = trainEnd
	for testEnd < len(candles) && !candles[testEnd].Bucket.After(end) {
		testEnd++
	}
	return trainEnd, testEnd
}

// Run executes one walk-forward pass. Candles must be ascending and span
// both the training history and the test range.
func (e *Engine) Run(ctx context.Context, symbol string, candles []models.Candle, start, end time.Time) (*models.BacktestResult, error) {
	trainEnd, testEnd := splitRange(candles, start, end)
	if trainEnd < strategy.MinTrainBars || testEnd-trainEnd < 2 {
		return nil, models.ErrInsufficientData
	}

	model, err := strategy.Fit(symbol, candles[:trainEnd], e.HMMCfg, e.SVRCfg)
	if err != nil {
		return nil, err
	}

	points := make([]models.ChartPoint, 0, testEnd-trainEnd)
	dailyRets := make([]float64, 0, testEnd-trainEnd)
	equity := 1.0
	prevPos := 0.0
	firstClose := candles[trainEnd].Close

	for i := trainEnd; i < testEnd; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Yesterday's exposure earns today's close-to-close move.
		if i > trainEnd {
			pr := candles[i].Close/candles[i-1].Close - 1
			ret := prevPos * pr
			equity *= 1 + ret
			dailyRets = append(dailyRets, ret)
		}

		lo := i - strategy.DecodeLookback + 1
		if lo < 0 {
			lo = 0
		}
		sig, err := strategy.EvaluateSpan(model, candles[lo:i+1], e.ShortSpan, e.LongSpan)
		if err != nil {
			return nil, err
		}
		if e.Fee > 0 && sig.TargetPosition != prevPos {
			cost := e.Fee * abs(sig.TargetPosition-prevPos)
			equity *= 1 - cost
			if len(dailyRets) > 0 {
				dailyRets[len(dailyRets)-1] -= cost
			}
		}

		points = append(points, models.ChartPoint{
			Date:           candles[i].Bucket,
			Close:          candles[i].Close,
			Equity:         equity,
			BuyHoldEquity:  candles[i].Close / firstClose,
			Regime:         sig.Regime,
			Leverage:       sig.Multiplier,
			TargetPosition: sig.TargetPosition,
		})
		prevPos = sig.TargetPosition
	}

	trades := SegmentTrades(points)
	return &models.BacktestResult{
		Symbol:    symbol,
		Mode:      ModeWalkForward,
		StartDate: candles[trainEnd].Bucket,
		EndDate:   candles[testEnd-1].Bucket,
		TrainBars: model.TrainBars,
		Metrics:   ComputeMetrics(points, dailyRets, trades),
		Chart:     points,
		Trades:    trades,
	}, nil
}

// RunNaive executes a single-split pass: the model is fit on the training
// history and the whole test span is decoded in one shot, EMA seeded from
// the full series. Regimes on day t may therefore reflect smoothing over
// later test days. Faster and useful for comparison, but optimistic; the
// result is labeled so callers cannot mistake it for a walk-forward run.
func (e *Engine) RunNaive(ctx context.Context, symbol string, candles []models.Candle, start, end time.Time) (*models.BacktestResult, error) {
	trainEnd, testEnd := splitRange(candles, start, end)
	if trainEnd < strategy.MinTrainBars || testEnd-trainEnd < 2 {
		return nil, models.ErrInsufficientData
	}

	model, err := strategy.Fit(symbol, candles[:trainEnd], e.HMMCfg, e.SVRCfg)
	if err != nil {
		return nil, err
	}

	rows := features.Extract(candles[:testEnd])
	if len(rows) == 0 {
		return nil, models.ErrInsufficientData
	}
	obs := make([][]float64, len(rows))
	for i, r := range rows {
		obs[i] = []float64{r.LogReturn * 100, r.Volatility * 100}
	}
	regimes := hmm.DecodeRegimes(&model.HMM, obs)

	closes := make([]float64, testEnd)
	for i := 0; i < testEnd; i++ {
		closes[i] = candles[i].Close
	}
	emaShort := features.EMA(closes, e.ShortSpan)
	emaLong := features.EMA(closes, e.LongSpan)

	points := make([]models.ChartPoint, 0, testEnd-trainEnd)
	dailyRets := make([]float64, 0, testEnd-trainEnd)
	equity := 1.0
	prevPos := 0.0
	firstClose := candles[trainEnd].Close

	for i := trainEnd; i < testEnd; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if i > trainEnd {
			pr := candles[i].Close/candles[i-1].Close - 1
			ret := prevPos * pr
			equity *= 1 + ret
			dailyRets = append(dailyRets, ret)
		}

		// rows[k] describes candle k+VolWindow.
		row := rows[i-features.VolWindow]
		regime := regimes[i-features.VolWindow]
		predVol := svr.Predict(&model.SVR, []float64{
			row.LogReturn, row.Volatility, row.DownsideVol, float64(regime),
		})
		if predVol < 0 {
			predVol = 0
		}
		riskRatio := 0.0
		if model.AvgTrainVol > 0 {
			riskRatio = predVol / model.AvgTrainVol
		}
		emaSignal := 0.0
		if emaShort[i] > emaLong[i] {
			emaSignal = 1
		}
		mult := strategy.Multiplier(regime, model.HMM.NStates, riskRatio)
		target := emaSignal * mult

		if e.Fee > 0 && target != prevPos {
			cost := e.Fee * abs(target-prevPos)
			equity *= 1 - cost
			if len(dailyRets) > 0 {
				dailyRets[len(dailyRets)-1] -= cost
			}
		}

		points = append(points, models.ChartPoint{
			Date:           candles[i].Bucket,
			Close:          candles[i].Close,
			Equity:         equity,
			BuyHoldEquity:  candles[i].Close / firstClose,
			Regime:         regime,
			Leverage:       mult,
			TargetPosition: target,
		})
		prevPos = target
	}

	trades := SegmentTrades(points)
	return &models.BacktestResult{
		Symbol:    symbol,
		Mode:      ModeNaive,
		StartDate: candles[trainEnd].Bucket,
		EndDate:   candles[testEnd-1].Bucket,
		TrainBars: model.TrainBars,
		Metrics:   ComputeMetrics(points, dailyRets, trades),
		Chart:     points,
		Trades:    trades,
	}, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
