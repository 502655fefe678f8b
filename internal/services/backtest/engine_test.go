package backtest

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"Quantra/internal/domain/models"
)

func synthCandles(n int, seed int64) []models.Candle {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	p := 100.0
	for i := 0; i < n; i++ {
		vol := 0.015
		if i%200 > 150 {
			vol = 0.05
		}
		p *= math.Exp(rng.NormFloat64()*vol + 0.0003)
		out[i] = models.Candle{Bucket: base.AddDate(0, 0, i), Symbol: "BTCUSDT", Close: p}
	}
	return out
}

func TestRunInsufficientTraining(t *testing.T) {
	candles := synthCandles(300, 1)
	e := NewEngine(0)
	start := candles[100].Bucket // only 100 bars of pre-start history
	end := candles[299].Bucket
	if _, err := e.Run(context.Background(), "BTCUSDT", candles, start, end); err != models.ErrInsufficientData {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRunShape(t *testing.T) {
	candles := synthCandles(450, 2)
	e := NewEngine(0)
	start := candles[300].Bucket
	end := candles[449].Bucket
	res, err := e.Run(context.Background(), "BTCUSDT", candles, start, end)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Chart) != 150 {
		t.Fatalf("expected 150 chart points, got %d", len(res.Chart))
	}
	if !res.StartDate.Equal(start) || !res.EndDate.Equal(end) {
		t.Fatalf("date range mismatch: %v..%v", res.StartDate, res.EndDate)
	}
	if res.Chart[0].Equity != 1.0 {
		t.Fatalf("equity must start at 1.0, got %v", res.Chart[0].Equity)
	}
	if res.Chart[0].BuyHoldEquity != 1.0 {
		t.Fatalf("buy and hold must start at 1.0")
	}
	if res.Metrics.TestDays != 150 {
		t.Fatalf("test days %d, want 150", res.Metrics.TestDays)
	}
	for i, p := range res.Chart {
		if p.TargetPosition < 0 || p.TargetPosition > 3 {
			t.Fatalf("point %d exposure %v out of range", i, p.TargetPosition)
		}
		if p.Regime < 0 || p.Regime > 2 {
			t.Fatalf("point %d regime %v out of range", i, p.Regime)
		}
	}
}

// Extending the test range must not change any already-evaluated day.
func TestRunNoLookahead(t *testing.T) {
	candles := synthCandles(500, 3)
	start := candles[300].Bucket

	e := NewEngine(0)
	short, err := e.Run(context.Background(), "BTCUSDT", candles[:400], start, candles[399].Bucket)
	if err != nil {
		t.Fatalf("short run: %v", err)
	}
	long, err := e.Run(context.Background(), "BTCUSDT", candles, start, candles[499].Bucket)
	if err != nil {
		t.Fatalf("long run: %v", err)
	}
	if len(long.Chart) < len(short.Chart) {
		t.Fatalf("long run shorter than short run")
	}
	for i := range short.Chart {
		a, b := short.Chart[i], long.Chart[i]
		if a.TargetPosition != b.TargetPosition || a.Regime != b.Regime || a.Equity != b.Equity {
			t.Fatalf("day %d diverges when later data is added: %+v vs %+v", i, a, b)
		}
	}
}

// Equity must equal the compounded product of the daily returns.
func TestRunEquityConsistency(t *testing.T) {
	candles := synthCandles(420, 4)
	e := NewEngine(0)
	res, err := e.Run(context.Background(), "BTCUSDT", candles, candles[300].Bucket, candles[419].Bucket)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	eq := 1.0
	for i := 1; i < len(res.Chart); i++ {
		pr := res.Chart[i].Close/res.Chart[i-1].Close - 1
		eq *= 1 + res.Chart[i-1].TargetPosition*pr
		if math.Abs(eq-res.Chart[i].Equity) > 1e-9 {
			t.Fatalf("equity at day %d is %v, recomputed %v", i, res.Chart[i].Equity, eq)
		}
	}
	if math.Abs(res.Metrics.TotalReturn-(eq-1)) > 1e-9 {
		t.Fatalf("total return %v does not match curve %v", res.Metrics.TotalReturn, eq-1)
	}
}

func TestRunFeeReducesEquity(t *testing.T) {
	candles := synthCandles(420, 5)
	start, end := candles[300].Bucket, candles[419].Bucket

	free, err := NewEngine(0).Run(context.Background(), "BTCUSDT", candles, start, end)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	paid, err := NewEngine(0.001).Run(context.Background(), "BTCUSDT", candles, start, end)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	rebalances := 0
	prev := 0.0
	for _, p := range free.Chart {
		if p.TargetPosition != prev {
			rebalances++
		}
		prev = p.TargetPosition
	}
	if rebalances == 0 {
		t.Skip("no rebalances in this sample")
	}
	if paid.Metrics.TotalReturn >= free.Metrics.TotalReturn {
		t.Fatalf("fees must reduce returns: %v vs %v", paid.Metrics.TotalReturn, free.Metrics.TotalReturn)
	}
}

func TestRunCancelled(t *testing.T) {
	candles := synthCandles(420, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewEngine(0).Run(ctx, "BTCUSDT", candles, candles[300].Bucket, candles[419].Bucket); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRunNaiveShape(t *testing.T) {
	candles := synthCandles(450, 7)
	e := NewEngine(0)
	start := candles[300].Bucket
	end := candles[449].Bucket
	res, err := e.RunNaive(context.Background(), "BTCUSDT", candles, start, end)
	if err != nil {
		t.Fatalf("run naive: %v", err)
	}
	if res.Mode != ModeNaive {
		t.Fatalf("mode = %q, want %q", res.Mode, ModeNaive)
	}
	if len(res.Chart) != 150 {
		t.Fatalf("expected 150 chart points, got %d", len(res.Chart))
	}
	if res.Chart[0].Equity != 1.0 || res.Chart[0].BuyHoldEquity != 1.0 {
		t.Fatalf("equity curves must start at 1.0")
	}
	for i, p := range res.Chart {
		if p.Regime < 0 || p.Regime > 2 {
			t.Fatalf("point %d: regime %d out of range", i, p.Regime)
		}
	}
}

func TestRunModesLabeled(t *testing.T) {
	candles := synthCandles(420, 8)
	e := NewEngine(0)
	start := candles[300].Bucket
	end := candles[419].Bucket
	wf, err := e.Run(context.Background(), "BTCUSDT", candles, start, end)
	if err != nil {
		t.Fatalf("walkforward: %v", err)
	}
	if wf.Mode != ModeWalkForward {
		t.Fatalf("mode = %q, want %q", wf.Mode, ModeWalkForward)
	}
}

func TestRunCustomSpans(t *testing.T) {
	candles := synthCandles(420, 9)
	a := NewEngine(0)
	b := NewEngine(0)
	b.ShortSpan = 5
	b.LongSpan = 40
	start := candles[300].Bucket
	end := candles[419].Bucket
	ra, err := a.Run(context.Background(), "BTCUSDT", candles, start, end)
	if err != nil {
		t.Fatalf("default spans: %v", err)
	}
	rb, err := b.Run(context.Background(), "BTCUSDT", candles, start, end)
	if err != nil {
		t.Fatalf("custom spans: %v", err)
	}
	same := true
	for i := range ra.Chart {
		if ra.Chart[i].TargetPosition != rb.Chart[i].TargetPosition {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different EMA spans should change at least one position")
	}
}
