package usecase

import (
	"context"
	"time"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
	applogger "Quantra/pkg/logger"
	"Quantra/pkg/queue"
)

const retrainMsgType = "model.retrain"

// RetrainPayload identifies one model refresh.
type RetrainPayload struct {
	Symbol string `json:"symbol"`
	Days   int    `json:"days"`
}

// RetrainJob refits one model when a retrain message arrives.
type RetrainJob struct {
	trainer *TrainUseCase
	l       *applogger.Logger
}

func NewRetrainJob(trainer *TrainUseCase, l *applogger.Logger) *RetrainJob {
	return &RetrainJob{trainer: trainer, l: l}
}

func (j *RetrainJob) Name() string { return "model-retrain" }
func (j *RetrainJob) Type() string { return retrainMsgType }

func (j *RetrainJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RetrainPayload](payload)
	if err != nil {
		return err
	}
	m, err := j.trainer.Train(ctx, models.TrainRequest{
		Symbol: p.Symbol,
		Days:   p.Days,
		Force:  true,
	})
	if err != nil {
		return err
	}
	if j.l != nil {
		j.l.Info("model refreshed",
			applogger.String("symbol", m.Symbol),
			applogger.Int("bars", m.TrainBars),
		)
	}
	return nil
}

// RetrainWorker periodically enqueues a retrain message for every
// persisted model and consumes them through the queue workers.
type RetrainWorker struct {
	q        *queue.RedisQueue
	store    domrepo.ModelStore
	interval time.Duration
	days     int
	l        *applogger.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRetrainWorker(q *queue.RedisQueue, store domrepo.ModelStore, interval time.Duration, days int, l *applogger.Logger) *RetrainWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if days <= 0 {
		days = 730
	}
	return &RetrainWorker{
		q:        q,
		store:    store,
		interval: interval,
		days:     days,
		l:        l,
		done:     make(chan struct{}),
	}
}

// Start launches the queue workers and the scheduling loop.
func (w *RetrainWorker) Start() error {
	if err := w.q.Start(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.loop(ctx)
	return nil
}

func (w *RetrainWorker) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.enqueueAll(ctx)
		}
	}
}

func (w *RetrainWorker) enqueueAll(ctx context.Context) {
	for _, info := range w.store.List() {
		payload := RetrainPayload{Symbol: info.Symbol, Days: w.days}
		if err := w.q.Enqueue(ctx, retrainMsgType, payload); err != nil {
			if w.l != nil {
				w.l.Warn("retrain enqueue failed",
					applogger.String("symbol", info.Symbol),
					applogger.Error(err),
				)
			}
			continue
		}
	}
	if w.l != nil {
		w.l.Debug("retrain cycle scheduled", applogger.Int("models", len(w.store.List())))
	}
}

// Stop halts scheduling and drains the queue workers.
func (w *RetrainWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	return w.q.Stop(ctx)
}
