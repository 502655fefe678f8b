package hmm

import (
	"math"
	"math/rand"
	"testing"
)

// synthObs builds a three-segment series: calm, normal, turbulent. The
// volatility dimension separates segments cleanly so EM has an easy job.
func synthObs(seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	obs := make([][]float64, 0, 300)
	segs := []struct {
		n    int
		vol  float64
		dvol float64
	}{
		{100, 0.5, 0.05},
		{100, 1.5, 0.1},
		{100, 4.0, 0.3},
	}
	for _, s := range segs {
		for i := 0; i < s.n; i++ {
			r := rng.NormFloat64() * s.vol
			v := s.vol + rng.NormFloat64()*s.dvol
			obs = append(obs, []float64{r, v})
		}
	}
	return obs
}

func TestFitIdenticalObservations(t *testing.T) {
	// A series with no dispersion at all: every state collapses onto the
	// same point. The fit must still succeed and the occupied state must
	// rank as the calmest regime.
	obs := make([][]float64, 60)
	for i := range obs {
		obs[i] = []float64{0, 0}
	}
	p, err := Fit(obs, DefaultConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	for _, r := range DecodeRegimes(&p, obs) {
		if r != 0 {
			t.Fatalf("degenerate series must decode to regime 0, got %d", r)
		}
	}
}

func TestFitTooFewObservations(t *testing.T) {
	obs := [][]float64{{0, 1}, {0, 1}, {0, 1}}
	if _, err := Fit(obs, DefaultConfig()); err == nil {
		t.Fatalf("expected error for tiny sample")
	}
}

func TestFitDeterministic(t *testing.T) {
	obs := synthObs(7)
	cfg := DefaultConfig()
	a, err := Fit(obs, cfg)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	b, err := Fit(obs, cfg)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if a.LogLik != b.LogLik {
		t.Fatalf("same seed must give same log-likelihood: %v vs %v", a.LogLik, b.LogLik)
	}
	for i := range a.Means {
		for d := range a.Means[i] {
			if a.Means[i][d] != b.Means[i][d] {
				t.Fatalf("means differ at state %d dim %d", i, d)
			}
		}
	}
	for i, m := range a.StateMap {
		if b.StateMap[i] != m {
			t.Fatalf("state maps differ")
		}
	}
}

func TestCanonicalOrdering(t *testing.T) {
	obs := synthObs(11)
	p, err := Fit(obs, DefaultConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	// The mapping must be a permutation of 0..N-1.
	seen := make(map[int]bool)
	for _, m := range p.StateMap {
		if m < 0 || m >= p.NStates || seen[m] {
			t.Fatalf("state map %v is not a permutation", p.StateMap)
		}
		seen[m] = true
	}

	// Mean volatility per canonical regime must be non-decreasing.
	regimes := DecodeRegimes(&p, obs)
	sums := make([]float64, p.NStates)
	counts := make([]float64, p.NStates)
	for t2, r := range regimes {
		sums[r] += obs[t2][1]
		counts[r]++
	}
	prev := math.Inf(-1)
	for r := 0; r < p.NStates; r++ {
		if counts[r] == 0 {
			continue
		}
		mv := sums[r] / counts[r]
		if mv < prev {
			t.Fatalf("canonical regime %d has mean vol %v below previous %v", r, mv, prev)
		}
		prev = mv
	}
}

func TestDecodeSeparatesSegments(t *testing.T) {
	obs := synthObs(3)
	p, err := Fit(obs, DefaultConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	regimes := DecodeRegimes(&p, obs)
	if len(regimes) != len(obs) {
		t.Fatalf("decode length mismatch")
	}

	// Majority regime of the calm segment must rank below the turbulent one.
	maj := func(rs []int) int {
		counts := map[int]int{}
		for _, r := range rs {
			counts[r]++
		}
		best, bestC := 0, -1
		for r, c := range counts {
			if c > bestC {
				best, bestC = r, c
			}
		}
		return best
	}
	calm := maj(regimes[:100])
	wild := maj(regimes[200:])
	if calm >= wild {
		t.Fatalf("calm segment regime %d must rank below turbulent %d", calm, wild)
	}
}

func TestViterbiLength(t *testing.T) {
	obs := synthObs(5)
	p, err := Fit(obs, DefaultConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if got := Viterbi(&p, nil); got != nil {
		t.Fatalf("empty input must decode to nil")
	}
	one := Viterbi(&p, obs[:1])
	if len(one) != 1 {
		t.Fatalf("single observation must decode to one state")
	}
}
