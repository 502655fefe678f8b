package strategy

import (
	"time"

	"Quantra/internal/domain/models"
	"Quantra/internal/services/features"
	"Quantra/internal/services/hmm"
	"Quantra/internal/services/svr"
)

// DecodeLookback bounds the trailing window the regime decoder sees, so a
// single evaluation stays O(window) regardless of total history.
const DecodeLookback = 252

// MinSignalBars is the minimum candle history for one evaluation.
const MinSignalBars = 100

// Evaluate runs one full signal evaluation: regime decode over the trailing
// window, volatility forecast, EMA trend, and the sizing decision.
// Candles must be in ascending time order; the last close is the mark price.
func Evaluate(model *models.TrainedModel, candles []models.Candle) (*models.SignalResult, error) {
	return EvaluateSpan(model, candles, EMAShortSpan, EMALongSpan)
}

// EvaluateSpan is Evaluate with caller-chosen EMA spans.
func EvaluateSpan(model *models.TrainedModel, candles []models.Candle, shortSpan, longSpan int) (*models.SignalResult, error) {
	if shortSpan <= 0 {
		shortSpan = EMAShortSpan
	}
	if longSpan <= 0 {
		longSpan = EMALongSpan
	}
	if len(candles) < MinSignalBars {
		return nil, models.ErrInsufficientData
	}
	if len(candles) > DecodeLookback {
		candles = candles[len(candles)-DecodeLookback:]
	}

	rows := features.Extract(candles)
	if len(rows) == 0 {
		return nil, models.ErrInsufficientData
	}

	obs := make([][]float64, len(rows))
	for i, r := range rows {
		obs[i] = []float64{r.LogReturn * 100, r.Volatility * 100}
	}
	regimes := hmm.DecodeRegimes(&model.HMM, obs)
	last := rows[len(rows)-1]
	regime := regimes[len(regimes)-1]

	predVol := svr.Predict(&model.SVR, []float64{
		last.LogReturn, last.Volatility, last.DownsideVol, float64(regime),
	})
	if predVol < 0 {
		predVol = 0
	}

	riskRatio := 0.0
	if model.AvgTrainVol > 0 {
		riskRatio = predVol / model.AvgTrainVol
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	emaShort := features.EMA(closes, shortSpan)
	emaLong := features.EMA(closes, longSpan)
	s := emaShort[len(emaShort)-1]
	l := emaLong[len(emaLong)-1]
	emaSignal := 0
	if s > l {
		emaSignal = 1
	}

	mult := Multiplier(regime, model.HMM.NStates, riskRatio)
	label := models.RegimeLabel(regime, model.HMM.NStates)

	ts := last.Bucket
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &models.SignalResult{
		Symbol:         model.Symbol,
		Timestamp:      ts,
		EMASignal:      emaSignal,
		EMAShort:       s,
		EMALong:        l,
		Regime:         regime,
		RegimeLabel:    label,
		PredictedVol:   predVol,
		CurrentVol:     last.Volatility,
		RiskRatio:      riskRatio,
		Multiplier:     mult,
		TargetPosition: float64(emaSignal) * mult,
		ClosePrice:     last.Close,
		Reasoning:      Reasoning(label, regime, riskRatio, mult, emaSignal == 1),
	}, nil
}

// Action translates the change between the held position fraction and the
// target into an order side.
func Action(current, target float64) models.Signal {
	const tolerance = 1e-9
	switch {
	case target > current+tolerance:
		return models.SignalBuy
	case target < current-tolerance:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}
