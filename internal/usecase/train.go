package usecase

import (
	"context"
	"strings"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
	"Quantra/internal/services/hmm"
	"Quantra/internal/services/strategy"
	"Quantra/internal/services/svr"
	pkgcache "Quantra/pkg/cache"
	applogger "Quantra/pkg/logger"
)

const trainLockTTL = 10 * time.Minute

// TrainUseCase fits and persists models.
type TrainUseCase struct {
	history *HistoryProvider
	store   domrepo.ModelStore
	metrics domrepo.Metrics
	l       *applogger.Logger
	locker  pkgcache.Service

	hmmCfg hmm.Config
	svrCfg svr.Config
}

func NewTrainUseCase(history *HistoryProvider, store domrepo.ModelStore, metrics domrepo.Metrics, l *applogger.Logger) *TrainUseCase {
	return &TrainUseCase{
		history: history,
		store:   store,
		metrics: metrics,
		l:       l,
		hmmCfg:  hmm.DefaultConfig(),
		svrCfg:  svr.DefaultConfig(),
	}
}

// SetLocker installs a lock backend so concurrent fits of the same
// symbol collapse into one.
func (uc *TrainUseCase) SetLocker(c pkgcache.Service) { uc.locker = c }

// Train fetches history, fits a model, and persists it. With Force false,
// an existing model trained within the last 24h is returned as-is.
func (uc *TrainUseCase) Train(ctx context.Context, req models.TrainRequest) (*models.TrainedModel, error) {
	symbol := strings.ToUpper(req.Symbol)
	if !req.Force {
		if m, err := uc.store.Get(symbol); err == nil && time.Since(m.TrainedAt) < 24*time.Hour {
			return m, nil
		}
	}

	if uc.locker != nil {
		lockKey := "train:" + symbol
		ok, err := uc.locker.TryLock(ctx, lockKey, trainLockTTL)
		if err == nil && !ok {
			if m, gerr := uc.store.Get(symbol); gerr == nil {
				return m, nil
			}
			return nil, models.ErrTrainingInProgress
		}
		if err == nil {
			defer func() {
				if uerr := uc.locker.Unlock(context.Background(), lockKey); uerr != nil && uc.l != nil {
					uc.l.Warn("train lock release failed", applogger.Error(uerr))
				}
			}()
		}
	}

	start := time.Now()
	candles, err := uc.history.Daily(ctx, symbol, req.Days, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if len(candles) < strategy.MinTrainBars {
		return nil, models.ErrInsufficientData
	}

	m, err := strategy.Fit(symbol, candles, uc.hmmCfg, uc.svrCfg)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordError("train")
		}
		return nil, err
	}
	if err := uc.store.Save(m); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.RecordLatency("train", time.Since(start).Seconds())
	}
	if uc.l != nil {
		uc.l.Info("model trained",
			applogger.String("symbol", symbol),
			applogger.Int("bars", m.TrainBars),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return m, nil
}

// List returns metadata for all persisted models.
func (uc *TrainUseCase) List() []models.ModelInfo {
	return uc.store.List()
}

// Info returns metadata for one symbol.
func (uc *TrainUseCase) Info(symbol string) (models.ModelInfo, error) {
	m, err := uc.store.Get(symbol)
	if err != nil {
		return models.ModelInfo{}, err
	}
	return m.Info(), nil
}

// Delete removes a persisted model.
func (uc *TrainUseCase) Delete(symbol string) error {
	return uc.store.Delete(symbol)
}
