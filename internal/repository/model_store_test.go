package repository

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Quantra/internal/domain/models"
)

func testModel(symbol string) *models.TrainedModel {
	return &models.TrainedModel{
		Symbol: symbol,
		HMM: models.HMMParams{
			NStates:  3,
			Pi:       []float64{0.3, 0.4, 0.3},
			Trans:    [][]float64{{0.8, 0.1, 0.1}, {0.1, 0.8, 0.1}, {0.1, 0.1, 0.8}},
			Means:    [][]float64{{0, 1}, {0, 2}, {0, 4}},
			Covs:     [][]float64{{1, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 1}},
			StateMap: []int{2, 0, 1},
			LogLik:   -123.4,
		},
		SVR: models.SVRParams{
			C: 100, Gamma: 0.1, Epsilon: 0.01,
			SupportX:   [][]float64{{0, 0, 0, 0}},
			Beta:       []float64{0.5},
			Bias:       0.1,
			FeatMean:   []float64{0, 0, 0, 0},
			FeatStd:    []float64{1, 1, 1, 1},
			TargetStd:  1,
			TargetMean: 0.02,
		},
		TrainedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		TrainBars:   500,
		AvgTrainVol: 0.021,
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileModelStore(dir, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	want := testModel("btcusdt")
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "btcusdt_model.blob")); err != nil {
		t.Fatalf("blob filename must be lowercased: %v", err)
	}

	// symbol lookup is case-insensitive
	got, err := s.Get("BTCUSDT")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TrainBars != want.TrainBars || got.AvgTrainVol != want.AvgTrainVol {
		t.Fatalf("metadata lost in round trip")
	}

	// A fresh store must decode the blob from disk, not serve the writer's
	// cache.
	fresh, err := NewFileModelStore(dir, nil)
	if err != nil {
		t.Fatalf("fresh store: %v", err)
	}
	got, err = fresh.Get("BTCUSDT")
	if err != nil {
		t.Fatalf("get from disk: %v", err)
	}
	if got.TrainBars != want.TrainBars || got.AvgTrainVol != want.AvgTrainVol {
		t.Fatalf("metadata lost in disk round trip")
	}
	if got.HMM.NStates != 3 || got.HMM.Means[2][1] != 4 {
		t.Fatalf("hmm params lost in disk round trip")
	}
	if len(got.HMM.StateMap) != len(want.HMM.StateMap) {
		t.Fatalf("state map lost in disk round trip")
	}
	for i, m := range want.HMM.StateMap {
		if got.HMM.StateMap[i] != m {
			t.Fatalf("state map %v differs from %v", got.HMM.StateMap, want.HMM.StateMap)
		}
	}
	if got.SVR.Beta[0] != 0.5 || got.SVR.TargetMean != 0.02 {
		t.Fatalf("svr params lost in disk round trip")
	}
	if !got.TrainedAt.Equal(want.TrainedAt) {
		t.Fatalf("trained timestamp lost in disk round trip")
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := NewFileModelStore(t.TempDir(), nil)
	if _, err := s.Get("ETHUSDT"); !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}

func TestLoadAllSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileModelStore(dir, nil)
	if err := s.Save(testModel("BTCUSDT")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "JUNK_model.blob"), []byte("not a gob"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	fresh, _ := NewFileModelStore(dir, nil)
	n, err := fresh.LoadAll()
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 loaded model, got %d", n)
	}
	infos := fresh.List()
	if len(infos) != 1 || infos[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected list %+v", infos)
	}
}

func TestCorruptBlobError(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileModelStore(dir, nil)
	if err := os.WriteFile(filepath.Join(dir, "btcusdt_model.blob"), []byte{0x01, 0x02}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Get("BTCUSDT"); !errors.Is(err, models.ErrModelCorrupt) {
		t.Fatalf("expected ErrModelCorrupt, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s, _ := NewFileModelStore(t.TempDir(), nil)
	if err := s.Save(testModel("BTCUSDT")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete("btcusdt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("BTCUSDT"); !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("model should be gone, got %v", err)
	}
	if err := s.Delete("BTCUSDT"); !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("double delete should report not trained, got %v", err)
	}
}

func TestSaveReplacesCachedModel(t *testing.T) {
	s, _ := NewFileModelStore(t.TempDir(), nil)
	a := testModel("BTCUSDT")
	if err := s.Save(a); err != nil {
		t.Fatalf("save: %v", err)
	}
	b := testModel("BTCUSDT")
	b.TrainBars = 999
	if err := s.Save(b); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get("BTCUSDT")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TrainBars != 999 {
		t.Fatalf("stale model served after replace")
	}
}
