package strategy

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"Quantra/internal/domain/models"
	"Quantra/internal/services/features"
	"Quantra/internal/services/hmm"
	"Quantra/internal/services/svr"
)

func TestMultiplierTable(t *testing.T) {
	const n = 3
	cases := []struct {
		regime int
		ratio  float64
		want   float64
	}{
		{2, 0.1, 0.0}, // crash always flat
		{2, 2.0, 0.0},
		{0, 0.49, 3.0},
		{0, 0.5, 2.0},
		{0, 0.84, 2.0},
		{0, 0.85, 1.0},
		{0, 1.5, 1.0},
		{1, 0.49, 2.0},
		{1, 0.5, 1.0},
		{1, 1.2, 1.0},
		{1, 1.21, 0.5},
	}
	for _, c := range cases {
		if got := Multiplier(c.regime, n, c.ratio); got != c.want {
			t.Fatalf("regime %d ratio %v: got %v want %v", c.regime, c.ratio, got, c.want)
		}
	}
}

func TestMultiplierMiddleStates(t *testing.T) {
	// With five states, regimes 2 and 3 fall outside the explicit tiers.
	if got := Multiplier(2, 5, 0.1); got != 1.0 {
		t.Fatalf("unmapped regime must size 1x, got %v", got)
	}
	if got := Multiplier(3, 5, 3.0); got != 1.0 {
		t.Fatalf("unmapped regime must size 1x, got %v", got)
	}
	if got := Multiplier(4, 5, 0.1); got != 0.0 {
		t.Fatalf("top regime must be flat, got %v", got)
	}
}

func TestAction(t *testing.T) {
	if got := Action(0, 2); got != models.SignalBuy {
		t.Fatalf("expected BUY, got %v", got)
	}
	if got := Action(2, 0.5); got != models.SignalSell {
		t.Fatalf("expected SELL, got %v", got)
	}
	if got := Action(1, 1); got != models.SignalHold {
		t.Fatalf("expected HOLD, got %v", got)
	}
}

func synthCandles(n int, seed int64) []models.Candle {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	p := 100.0
	for i := 0; i < n; i++ {
		vol := 0.01
		if i > n/2 {
			vol = 0.04
		}
		p *= math.Exp(rng.NormFloat64() * vol)
		out[i] = models.Candle{Bucket: base.AddDate(0, 0, i), Symbol: "BTCUSDT", Close: p}
	}
	return out
}

func fitModel(t *testing.T, candles []models.Candle) *models.TrainedModel {
	t.Helper()
	rows := features.Extract(candles)
	obs := make([][]float64, 0, len(rows))
	X := make([][]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for _, r := range rows {
		obs = append(obs, []float64{r.LogReturn * 100, r.Volatility * 100})
	}
	p, err := hmm.Fit(obs, hmm.DefaultConfig())
	if err != nil {
		t.Fatalf("hmm fit: %v", err)
	}
	regimes := hmm.DecodeRegimes(&p, obs)
	avgVol := 0.0
	for i, r := range rows {
		if !r.HasForward {
			continue
		}
		X = append(X, []float64{r.LogReturn, r.Volatility, r.DownsideVol, float64(regimes[i])})
		y = append(y, r.ForwardVol)
		avgVol += r.Volatility
	}
	avgVol /= float64(len(X))
	sp, err := svr.Train(X, y, svr.DefaultConfig())
	if err != nil {
		t.Fatalf("svr train: %v", err)
	}
	return &models.TrainedModel{
		Symbol:      "BTCUSDT",
		HMM:         p,
		SVR:         sp,
		TrainedAt:   time.Now().UTC(),
		TrainBars:   len(rows),
		AvgTrainVol: avgVol,
	}
}

func TestEvaluateStressScenarios(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	flat := make([]models.Candle, 300)
	for i := range flat {
		flat[i] = models.Candle{Bucket: base.AddDate(0, 0, i), Symbol: "BTCUSDT", Close: 100}
	}

	// Strictly falling closes with accelerating dispersion: magnitudes grow
	// roughly fifty-fold across the series and alternate to keep the
	// rolling stdev rising.
	crash := make([]models.Candle, 300)
	p := 100000.0
	for i := range crash {
		mag := 0.001 * math.Exp(3.9*float64(i)/300)
		f := 0.25
		if i%2 == 1 {
			f = 1.75
		}
		p *= 1 - mag*f
		crash[i] = models.Candle{Bucket: base.AddDate(0, 0, i), Symbol: "BTCUSDT", Close: p}
	}

	cases := []struct {
		name       string
		candles    []models.Candle
		wantRegime int
		wantMult   float64
	}{
		{"flat zero volatility", flat, 0, 3.0},
		{"accelerating crash", crash, 2, 0.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, err := Fit("BTCUSDT", c.candles, hmm.DefaultConfig(), svr.DefaultConfig())
			if err != nil {
				t.Fatalf("fit: %v", err)
			}
			res, err := Evaluate(m, c.candles)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if res.Regime != c.wantRegime {
				t.Fatalf("regime %d, want %d", res.Regime, c.wantRegime)
			}
			if res.Multiplier != c.wantMult {
				t.Fatalf("multiplier %v, want %v", res.Multiplier, c.wantMult)
			}
			if res.TargetPosition != 0 {
				t.Fatalf("neither scenario may take long exposure, got %v", res.TargetPosition)
			}
		})
	}
}

func TestEvaluateFlatSeriesDegenerateRisk(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	flat := make([]models.Candle, 300)
	for i := range flat {
		flat[i] = models.Candle{Bucket: base.AddDate(0, 0, i), Symbol: "BTCUSDT", Close: 100}
	}
	m, err := Fit("BTCUSDT", flat, hmm.DefaultConfig(), svr.DefaultConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	res, err := Evaluate(m, flat)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.RiskRatio != 0 {
		t.Fatalf("risk ratio %v, want 0 for a zero-volatility history", res.RiskRatio)
	}
	if res.PredictedVol < 0 || res.PredictedVol > 1e-6 {
		t.Fatalf("predicted vol %v, want ~0", res.PredictedVol)
	}
}

func TestEvaluateInsufficient(t *testing.T) {
	m := &models.TrainedModel{}
	if _, err := Evaluate(m, synthCandles(MinSignalBars-1, 1)); err != models.ErrInsufficientData {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEvaluateProducesConsistentSizing(t *testing.T) {
	candles := synthCandles(400, 9)
	m := fitModel(t, candles)
	res, err := Evaluate(m, candles)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Regime < 0 || res.Regime >= m.HMM.NStates {
		t.Fatalf("regime %d out of range", res.Regime)
	}
	wantMult := Multiplier(res.Regime, m.HMM.NStates, res.RiskRatio)
	if res.Multiplier != wantMult {
		t.Fatalf("multiplier %v inconsistent with table value %v", res.Multiplier, wantMult)
	}
	if got := res.TargetPosition; got != float64(res.EMASignal)*res.Multiplier {
		t.Fatalf("target position %v must be ema x multiplier", got)
	}
	if res.PredictedVol < 0 {
		t.Fatalf("predicted vol must be non-negative")
	}
	if res.Reasoning == "" {
		t.Fatalf("reasoning missing")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	candles := synthCandles(400, 4)
	m := fitModel(t, candles)
	a, err := Evaluate(m, candles)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	b, err := Evaluate(m, candles)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if a.Regime != b.Regime || a.PredictedVol != b.PredictedVol || a.TargetPosition != b.TargetPosition {
		t.Fatalf("same inputs must yield identical signals")
	}
}

func TestEvaluateUsesBoundedWindow(t *testing.T) {
	candles := synthCandles(900, 6)
	m := fitModel(t, candles[:500])
	full, err := Evaluate(m, candles)
	if err != nil {
		t.Fatalf("evaluate full: %v", err)
	}
	tail, err := Evaluate(m, candles[len(candles)-DecodeLookback:])
	if err != nil {
		t.Fatalf("evaluate tail: %v", err)
	}
	if full.Regime != tail.Regime || full.TargetPosition != tail.TargetPosition {
		t.Fatalf("history beyond the lookback window must not change the signal")
	}
}
