package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"Quantra/internal/domain/models"
	domrepo "Quantra/internal/domain/repository"
	"Quantra/internal/service/paper"
	"Quantra/internal/services/strategy"
	applogger "Quantra/pkg/logger"
)

// session is one live paper-trading loop.
type session struct {
	id             string
	symbol         string
	interval       time.Duration
	initialBalance float64
	expiresAt      time.Time

	account *paper.Account
	cancel  context.CancelFunc
	done    chan struct{}

	mu          sync.Mutex
	status      models.SessionStatus
	startedAt   time.Time
	lastCycleAt time.Time
	cycles      int
	lastSignal  *models.SignalResult
	trades      []models.Trade
	errMsg      string
}

// SessionRegistry owns all live sessions. Start spawns a goroutine per
// session; Stop is idempotent and returns only after the loop has exited,
// so an in-flight cycle is never abandoned mid-trade.
type SessionRegistry struct {
	trainer *TrainUseCase
	signals *SignalUseCase
	history *HistoryProvider
	store   domrepo.ModelStore
	pub     domrepo.Publisher
	metrics domrepo.Metrics
	l       *applogger.Logger

	maxActive int

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewSessionRegistry(
	trainer *TrainUseCase,
	signals *SignalUseCase,
	history *HistoryProvider,
	store domrepo.ModelStore,
	pub domrepo.Publisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *SessionRegistry {
	return &SessionRegistry{
		trainer:  trainer,
		signals:  signals,
		history:  history,
		store:    store,
		pub:      pub,
		metrics:  metrics,
		l:        l,
		sessions: make(map[string]*session),
	}
}

// SetMaxActive caps concurrently running sessions. Zero or negative means
// unlimited.
func (r *SessionRegistry) SetMaxActive(n int) { r.maxActive = n }

func (r *SessionRegistry) activeCount() int {
	n := 0
	for _, s := range r.sessions {
		s.mu.Lock()
		st := s.status
		s.mu.Unlock()
		if st == models.SessionTraining || st == models.SessionRunning {
			n++
		}
	}
	return n
}

// Start opens a session. If the symbol has no model yet, one is trained
// first; the session reports status "training" while that runs.
func (r *SessionRegistry) Start(ctx context.Context, req models.SessionStartRequest) (models.SessionInfo, error) {
	symbol := strings.ToUpper(req.Symbol)
	interval := time.Duration(req.IntervalSec) * time.Second
	if interval <= 0 {
		interval = 3 * time.Hour
	}
	balance := req.InitialBalance
	if balance <= 0 {
		balance = 10000
	}

	s := &session{
		id:             uuid.NewString(),
		symbol:         symbol,
		interval:       interval,
		initialBalance: balance,
		account:        paper.NewAccount(balance),
		done:           make(chan struct{}),
		status:         models.SessionTraining,
		startedAt:      time.Now().UTC(),
	}
	if req.DurationMin > 0 {
		s.expiresAt = s.startedAt.Add(time.Duration(req.DurationMin) * time.Minute)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	r.mu.Lock()
	if r.maxActive > 0 && r.activeCount() >= r.maxActive {
		r.mu.Unlock()
		cancel()
		return models.SessionInfo{}, models.ErrSessionLimit
	}
	r.sessions[s.id] = s
	r.mu.Unlock()

	go r.run(runCtx, s, req.TrainDays)

	if r.l != nil {
		r.l.Info("session started",
			applogger.String("session_id", s.id),
			applogger.String("symbol", symbol),
			applogger.Duration("interval_ms", interval),
		)
	}
	return r.snapshot(s), nil
}

func (r *SessionRegistry) run(ctx context.Context, s *session, trainDays int) {
	defer close(s.done)

	// Ensure a model exists before the first cycle.
	if _, err := r.store.Get(s.symbol); err != nil {
		if trainDays <= 0 {
			trainDays = 730
		}
		if _, err := r.trainer.Train(ctx, models.TrainRequest{Symbol: s.symbol, Days: trainDays}); err != nil {
			s.mu.Lock()
			s.status = models.SessionFailed
			s.errMsg = fmt.Sprintf("auto-train: %v", err)
			s.mu.Unlock()
			if r.l != nil {
				r.l.Error("session auto-train failed",
					applogger.String("session_id", s.id),
					applogger.String("symbol", s.symbol),
					applogger.Error(err),
				)
			}
			return
		}
	}

	s.mu.Lock()
	s.status = models.SessionRunning
	s.mu.Unlock()

	// First cycle immediately, then on the interval.
	r.cycle(ctx, s)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// A nil channel never fires, so sessions without a duration run until
	// stopped.
	var expireCh <-chan time.Time
	if !s.expiresAt.IsZero() {
		expire := time.NewTimer(time.Until(s.expiresAt))
		defer expire.Stop()
		expireCh = expire.C
	}

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.status == models.SessionRunning {
				s.status = models.SessionStopped
			}
			s.mu.Unlock()
			return
		case <-expireCh:
			s.mu.Lock()
			if s.status == models.SessionRunning {
				s.status = models.SessionExpired
			}
			s.mu.Unlock()
			if r.l != nil {
				r.l.Info("session expired",
					applogger.String("session_id", s.id),
					applogger.String("symbol", s.symbol),
				)
			}
			return
		case <-ticker.C:
			r.cycle(ctx, s)
		}
	}
}

// cycle runs one evaluate-and-rebalance pass.
func (r *SessionRegistry) cycle(ctx context.Context, s *session) {
	sig, err := r.signals.Evaluate(ctx, s.symbol)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("session_cycle")
		}
		if r.l != nil {
			r.l.Warn("session cycle evaluation failed",
				applogger.String("session_id", s.id),
				applogger.String("symbol", s.symbol),
				applogger.Error(err),
			)
		}
		return
	}

	price, err := r.history.LastPrice(ctx, s.symbol)
	if err != nil || price <= 0 {
		price = sig.ClosePrice
	}
	if price <= 0 {
		return
	}

	port := s.account.Snapshot(price)
	current := 0.0
	if port.Equity > 0 {
		current = port.Quantity * price / port.Equity
	}
	// A cash account caps exposure at fully invested.
	target := sig.TargetPosition
	if target > 1 {
		target = 1
	}

	var trade *models.Trade
	switch strategy.Action(current, target) {
	case models.SignalBuy:
		value := (target - current) * port.Equity
		if qty, err := s.account.Buy(value, price); err == nil {
			trade = r.record(s, "BUY", qty, price, sig.Reasoning)
		}
	case models.SignalSell:
		qty := (current - target) * port.Equity / price
		if proceeds, err := s.account.Sell(qty, price); err == nil {
			trade = r.record(s, "SELL", proceeds/price, price, sig.Reasoning)
		}
	}

	s.mu.Lock()
	s.cycles++
	s.lastCycleAt = time.Now().UTC()
	s.lastSignal = sig
	if trade != nil {
		s.trades = append(s.trades, *trade)
	}
	s.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordEquity(s.id, s.account.Snapshot(price).Equity)
	}
	if trade != nil && r.pub != nil {
		if err := r.pub.PublishTrade(ctx, trade); err != nil && r.l != nil {
			r.l.Warn("trade publish failed",
				applogger.String("session_id", s.id),
				applogger.Error(err),
			)
		}
	}
}

func (r *SessionRegistry) record(s *session, side string, qty, price float64, reason string) *models.Trade {
	return &models.Trade{
		ID:        uuid.NewString(),
		SessionID: s.id,
		Symbol:    s.symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Value:     qty * price,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// Stop cancels the loop and waits for it to drain. Stopping a stopped
// session is a no-op.
func (r *SessionRegistry) Stop(ctx context.Context, id string) (models.SessionInfo, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return models.SessionInfo{}, models.ErrSessionNotFound
	}

	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return models.SessionInfo{}, ctx.Err()
	}
	return r.snapshot(s), nil
}

// Get returns one session's current state.
func (r *SessionRegistry) Get(id string) (models.SessionInfo, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return models.SessionInfo{}, models.ErrSessionNotFound
	}
	return r.snapshot(s), nil
}

// List returns every session, newest first.
func (r *SessionRegistry) List() []models.SessionInfo {
	r.mu.RLock()
	out := make([]models.SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, r.snapshot(s))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Trades returns the executed trades of one session.
func (r *SessionRegistry) Trades(id string) ([]models.Trade, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	s.mu.Lock()
	out := make([]models.Trade, len(s.trades))
	copy(out, s.trades)
	s.mu.Unlock()
	return out, nil
}

// StopAll shuts every session down, used on server shutdown.
func (r *SessionRegistry) StopAll(ctx context.Context) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		_, _ = r.Stop(ctx, id)
	}
}

func (r *SessionRegistry) snapshot(s *session) models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	price := 0.0
	if s.lastSignal != nil {
		price = s.lastSignal.ClosePrice
	}
	var expires *time.Time
	if !s.expiresAt.IsZero() {
		t := s.expiresAt
		expires = &t
	}
	return models.SessionInfo{
		ID:             s.id,
		Symbol:         s.symbol,
		Status:         s.status,
		StartedAt:      s.startedAt,
		ExpiresAt:      expires,
		LastCycleAt:    s.lastCycleAt,
		CyclesRun:      s.cycles,
		InitialBalance: s.initialBalance,
		Portfolio:      s.account.Snapshot(price),
		LastSignal:     s.lastSignal,
		TradeCount:     len(s.trades),
		Error:          s.errMsg,
	}
}
