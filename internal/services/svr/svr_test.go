package svr

import (
	"math"
	"math/rand"
	"testing"
)

func synthSet(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a := rng.Float64()*4 - 2
		b := rng.Float64()*4 - 2
		X[i] = []float64{a, b}
		y[i] = a + 0.5*b*b
	}
	return X, y
}

func TestTrainEmpty(t *testing.T) {
	if _, err := Train(nil, nil, DefaultConfig()); err == nil {
		t.Fatalf("expected error on empty set")
	}
}

func TestTrainMismatched(t *testing.T) {
	if _, err := Train([][]float64{{1}}, []float64{1, 2}, DefaultConfig()); err == nil {
		t.Fatalf("expected error on length mismatch")
	}
}

func TestInSampleFit(t *testing.T) {
	X, y := synthSet(80, 1)
	cfg := DefaultConfig()
	cfg.Gamma = 0.5
	p, err := Train(X, y, cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	// Predictions should track the target well within its own dispersion.
	_, ystd := meanStd(y)
	mae := 0.0
	for i := range X {
		mae += math.Abs(Predict(&p, X[i]) - y[i])
	}
	mae /= float64(len(X))
	if mae > 0.35*ystd {
		t.Fatalf("in-sample MAE %v too large for target std %v", mae, ystd)
	}
}

func TestTrainDeterministic(t *testing.T) {
	X, y := synthSet(60, 2)
	a, err := Train(X, y, DefaultConfig())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	b, err := Train(X, y, DefaultConfig())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if a.Bias != b.Bias || len(a.Beta) != len(b.Beta) {
		t.Fatalf("repeated fits differ")
	}
	for i := range a.Beta {
		if a.Beta[i] != b.Beta[i] {
			t.Fatalf("beta differs at %d", i)
		}
	}
	x := []float64{0.3, -0.7}
	if Predict(&a, x) != Predict(&b, x) {
		t.Fatalf("predictions differ between identical fits")
	}
}

func TestConstantTarget(t *testing.T) {
	X := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 2}}
	y := []float64{3, 3, 3, 3, 3}
	p, err := Train(X, y, DefaultConfig())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	got := Predict(&p, []float64{0.5, 0.5})
	if math.Abs(got-3) > 0.1 {
		t.Fatalf("constant target must predict the constant, got %v", got)
	}
}

func TestScalerZeroVarianceFeature(t *testing.T) {
	// Second feature is constant; scaling must not divide by zero.
	X := [][]float64{{0, 5}, {1, 5}, {2, 5}, {3, 5}, {4, 5}, {5, 5}}
	y := []float64{0, 1, 2, 3, 4, 5}
	p, err := Train(X, y, DefaultConfig())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	got := Predict(&p, []float64{2, 5})
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("prediction must be finite, got %v", got)
	}
}
