package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"Quantra/internal/domain/models"
)

// memModelStore holds one fitted model so sessions skip auto-training.
type memModelStore struct {
	model *models.TrainedModel
}

func (s *memModelStore) Save(m *models.TrainedModel) error { s.model = m; return nil }

func (s *memModelStore) Get(symbol string) (*models.TrainedModel, error) {
	if s.model == nil {
		return nil, models.ErrModelNotTrained
	}
	return s.model, nil
}

func (s *memModelStore) List() []models.ModelInfo {
	if s.model == nil {
		return nil
	}
	return []models.ModelInfo{{Symbol: s.model.Symbol}}
}

func (s *memModelStore) Delete(symbol string) error { s.model = nil; return nil }
func (s *memModelStore) LoadAll() (int, error)      { return 0, nil }

func newTestRegistry() *SessionRegistry {
	store := &memModelStore{model: &models.TrainedModel{Symbol: "BTCUSDT"}}
	history := NewHistoryProvider(nil, nil, nil)
	signals := NewSignalUseCase(history, store, nil)
	return NewSessionRegistry(nil, signals, history, store, nil, nil, nil)
}

func TestSessionMaxActive(t *testing.T) {
	r := newTestRegistry()
	r.SetMaxActive(1)
	defer r.StopAll(context.Background())

	first, err := r.Start(context.Background(), models.SessionStartRequest{
		Symbol:      "BTCUSDT",
		IntervalSec: 3600,
	})
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if first.ID == "" {
		t.Fatal("session id must be set")
	}

	if _, err := r.Start(context.Background(), models.SessionStartRequest{
		Symbol:      "ETHUSDT",
		IntervalSec: 3600,
	}); !errors.Is(err, models.ErrSessionLimit) {
		t.Fatalf("expected ErrSessionLimit, got %v", err)
	}

	// Freeing the slot allows a new session.
	if _, err := r.Stop(context.Background(), first.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := r.Start(context.Background(), models.SessionStartRequest{
		Symbol:      "ETHUSDT",
		IntervalSec: 3600,
	}); err != nil {
		t.Fatalf("start after stop: %v", err)
	}
}

func TestSessionExpiryDeadline(t *testing.T) {
	r := newTestRegistry()
	defer r.StopAll(context.Background())

	info, err := r.Start(context.Background(), models.SessionStartRequest{
		Symbol:      "BTCUSDT",
		IntervalSec: 3600,
		DurationMin: 30,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if info.ExpiresAt == nil {
		t.Fatal("expires_at must be set when a duration is given")
	}
	want := info.StartedAt.Add(30 * time.Minute)
	if !info.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", info.ExpiresAt, want)
	}

	open, err := r.Start(context.Background(), models.SessionStartRequest{
		Symbol:      "BTCUSDT",
		IntervalSec: 3600,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if open.ExpiresAt != nil {
		t.Fatalf("open-ended session must not expire, got %v", open.ExpiresAt)
	}
}

func TestSessionStopIsIdempotent(t *testing.T) {
	r := newTestRegistry()

	info, err := r.Start(context.Background(), models.SessionStartRequest{
		Symbol:      "BTCUSDT",
		IntervalSec: 3600,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 2; i++ {
		got, err := r.Stop(context.Background(), info.ID)
		if err != nil {
			t.Fatalf("stop %d: %v", i, err)
		}
		if got.Status != models.SessionStopped {
			t.Fatalf("stop %d: status = %q", i, got.Status)
		}
	}

	if _, err := r.Stop(context.Background(), "no-such-id"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
