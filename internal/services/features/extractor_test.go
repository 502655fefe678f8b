package features

import (
	"math"
	"testing"
	"time"

	"Quantra/internal/domain/models"
)

func mkCandles(closes []float64) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Bucket: base.AddDate(0, 0, i), Symbol: "BTCUSDT", Close: c}
	}
	return out
}

func TestComputeLogReturns(t *testing.T) {
	cs := mkCandles([]float64{100, 110, 99})
	rets := ComputeLogReturns(cs)
	if len(rets) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(rets))
	}
	if math.Abs(rets[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("unexpected return %v", rets[0])
	}
	if math.Abs(rets[1]-math.Log(0.9)) > 1e-12 {
		t.Fatalf("unexpected return %v", rets[1])
	}
}

func TestComputeLogReturnsShort(t *testing.T) {
	if got := ComputeLogReturns(mkCandles([]float64{100})); got != nil {
		t.Fatalf("expected nil for single candle")
	}
}

func TestRollingStdSample(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	out := RollingStd(xs, 3)
	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("warmup entries must be NaN")
	}
	// sample stdev of {1,2,3} is 1
	if math.Abs(out[2]-1) > 1e-12 {
		t.Fatalf("expected sample stdev 1, got %v", out[2])
	}
	if math.Abs(out[3]-1) > 1e-12 {
		t.Fatalf("expected sample stdev 1, got %v", out[3])
	}
}

func TestRollingStdConstant(t *testing.T) {
	xs := []float64{5, 5, 5, 5, 5}
	out := RollingStd(xs, 3)
	for i := 2; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("constant series must have zero stdev, got %v", out[i])
		}
	}
}

func TestExtractRowCountAndWarmup(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rows := Extract(mkCandles(closes))
	want := len(closes) - 1 - VolWindow + 1
	if len(rows) != want {
		t.Fatalf("expected %d rows, got %d", want, len(rows))
	}
	for i, r := range rows {
		if math.IsNaN(r.Volatility) || math.IsNaN(r.DownsideVol) {
			t.Fatalf("row %d has NaN features", i)
		}
	}
	last := rows[len(rows)-1]
	if last.HasForward {
		t.Fatalf("final row must not carry a forward target")
	}
	for _, r := range rows[:len(rows)-1] {
		if !r.HasForward {
			t.Fatalf("interior row missing forward target")
		}
	}
}

func TestExtractForwardTargetShift(t *testing.T) {
	closes := make([]float64, 20)
	p := 100.0
	for i := range closes {
		if i%2 == 0 {
			p *= 1.02
		} else {
			p *= 0.99
		}
		closes[i] = p
	}
	rows := Extract(mkCandles(closes))
	for i := 0; i < len(rows)-1; i++ {
		if math.Abs(rows[i].ForwardVol-rows[i+1].Volatility) > 1e-12 {
			t.Fatalf("forward target at %d must equal next row volatility", i)
		}
	}
}

func TestExtractDownsideOnlyUp(t *testing.T) {
	closes := make([]float64, 25)
	p := 100.0
	for i := range closes {
		p *= 1.01
		closes[i] = p
	}
	rows := Extract(mkCandles(closes))
	for _, r := range rows {
		if r.DownsideVol != 0 {
			t.Fatalf("monotone rising series must have zero downside vol, got %v", r.DownsideVol)
		}
	}
}

func TestExtractInsufficient(t *testing.T) {
	if rows := Extract(mkCandles([]float64{1, 2, 3})); rows != nil {
		t.Fatalf("expected nil for short history")
	}
}

func TestEMA(t *testing.T) {
	xs := []float64{1, 1, 1, 1}
	out := EMA(xs, 5)
	for _, v := range out {
		if math.Abs(v-1) > 1e-12 {
			t.Fatalf("EMA of constant series must be constant, got %v", v)
		}
	}
	xs = []float64{0, 10}
	out = EMA(xs, 3) // alpha = 0.5
	if math.Abs(out[1]-5) > 1e-12 {
		t.Fatalf("expected 5, got %v", out[1])
	}
}
