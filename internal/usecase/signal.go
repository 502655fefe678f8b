package usecase

import (
	"context"
	"strings"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
	"Quantra/internal/services/strategy"
)

// SignalUseCase evaluates the current signal for a symbol using its
// persisted model and recent daily history.
type SignalUseCase struct {
	history *HistoryProvider
	store   domrepo.ModelStore
	metrics domrepo.Metrics
}

func NewSignalUseCase(history *HistoryProvider, store domrepo.ModelStore, metrics domrepo.Metrics) *SignalUseCase {
	return &SignalUseCase{history: history, store: store, metrics: metrics}
}

// Evaluate computes the signal off the trailing decode window.
func (uc *SignalUseCase) Evaluate(ctx context.Context, symbol string) (*models.SignalResult, error) {
	symbol = strings.ToUpper(symbol)
	m, err := uc.store.Get(symbol)
	if err != nil {
		return nil, err
	}

	candles, err := uc.history.Daily(ctx, symbol, strategy.DecodeLookback+strategy.MinSignalBars, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	res, err := strategy.Evaluate(m, candles)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordError("signal")
		}
		return nil, err
	}
	if uc.metrics != nil {
		uc.metrics.RecordRegime(symbol, res.Regime)
		uc.metrics.RecordSignal(symbol, signalName(res))
	}
	return res, nil
}

func signalName(res *models.SignalResult) string {
	if res.TargetPosition > 0 {
		return "long"
	}
	return "flat"
}
