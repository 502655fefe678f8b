package strategy

import (
	"time"

	"Quantra/internal/domain/models"
	"Quantra/internal/services/features"
	"Quantra/internal/services/hmm"
	"Quantra/internal/services/svr"
)

// MinTrainBars is the minimum candle history for a model fit.
const MinTrainBars = 250

// Fit trains the regime classifier and the volatility forecaster on one
// contiguous candle history. Candles must be in ascending time order.
func Fit(symbol string, candles []models.Candle, hcfg hmm.Config, scfg svr.Config) (*models.TrainedModel, error) {
	if len(candles) < MinTrainBars {
		return nil, models.ErrInsufficientData
	}
	rows := features.Extract(candles)
	if len(rows) == 0 {
		return nil, models.ErrInsufficientData
	}

	obs := make([][]float64, len(rows))
	for i, r := range rows {
		obs[i] = []float64{r.LogReturn * 100, r.Volatility * 100}
	}
	hp, err := hmm.Fit(obs, hcfg)
	if err != nil {
		return nil, models.ErrTrainingFailed
	}
	regimes := hmm.DecodeRegimes(&hp, obs)

	X := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	avgVol := 0.0
	volN := 0
	for i, r := range rows {
		avgVol += r.Volatility
		volN++
		if !r.HasForward {
			continue
		}
		X = append(X, []float64{r.LogReturn, r.Volatility, r.DownsideVol, float64(regimes[i])})
		y = append(y, r.ForwardVol)
	}
	if len(X) == 0 {
		return nil, models.ErrInsufficientData
	}
	avgVol /= float64(volN)

	sp, err := svr.Train(X, y, scfg)
	if err != nil {
		return nil, models.ErrTrainingFailed
	}

	return &models.TrainedModel{
		Symbol:      symbol,
		HMM:         hp,
		SVR:         sp,
		TrainedAt:   time.Now().UTC(),
		TrainBars:   len(rows),
		AvgTrainVol: avgVol,
	}, nil
}
