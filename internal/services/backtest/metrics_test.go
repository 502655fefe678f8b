package backtest

import (
	"math"
	"testing"
	"time"

	"Quantra/internal/domain/models"
)

func TestSharpeZeroDispersion(t *testing.T) {
	if got := Sharpe([]float64{0, 0, 0}); got != 0 {
		t.Fatalf("zero-dispersion series must score 0, got %v", got)
	}
	if got := Sharpe(nil); got != 0 {
		t.Fatalf("empty series must score 0, got %v", got)
	}
}

func TestSharpePositive(t *testing.T) {
	rets := []float64{0.01, 0.02, -0.005, 0.015, 0.01}
	if got := Sharpe(rets); got <= 0 {
		t.Fatalf("mostly positive series must have positive Sharpe, got %v", got)
	}
}

func TestSortinoNoLosses(t *testing.T) {
	got := Sortino([]float64{0.01, 0.02, 0.005})
	if !math.IsInf(got, 1) {
		t.Fatalf("lossless positive series must be +Inf, got %v", got)
	}
	if got := Sortino([]float64{0, 0, 0}); got != 0 {
		t.Fatalf("flat series must score 0, got %v", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	eq := []float64{1.0, 1.2, 0.9, 1.1, 1.3}
	got := MaxDrawdown(eq)
	want := (1.2 - 0.9) / 1.2
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("got %v want %v", got, want)
	}
	if got := MaxDrawdown([]float64{1, 1.1, 1.2}); got != 0 {
		t.Fatalf("monotone curve must have zero drawdown, got %v", got)
	}
}

func mkPoints(positions []float64) []models.ChartPoint {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.ChartPoint, len(positions))
	for i, p := range positions {
		out[i] = models.ChartPoint{
			Date:           base.AddDate(0, 0, i),
			Close:          100 + float64(i),
			TargetPosition: p,
		}
	}
	return out
}

func TestSegmentTrades(t *testing.T) {
	trades := SegmentTrades(mkPoints([]float64{0, 0, 1, 1, 1, 0, 0, 1, 0}))
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].Duration != 3 {
		t.Fatalf("first trade duration %d, want 3", trades[0].Duration)
	}
	if trades[1].Duration != 1 {
		t.Fatalf("second trade duration %d, want 1", trades[1].Duration)
	}
	for i, tr := range trades {
		if tr.Open {
			t.Fatalf("trade %d should be closed", i)
		}
	}
	if trades[0].EntryPrice != 102 || trades[0].ExitPrice != 105 {
		t.Fatalf("first trade prices %v/%v", trades[0].EntryPrice, trades[0].ExitPrice)
	}
}

func TestSegmentTradesOpenAtEnd(t *testing.T) {
	trades := SegmentTrades(mkPoints([]float64{0, 1, 1}))
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].Open {
		t.Fatalf("trailing run must be reported open")
	}
	if trades[0].Duration != 2 {
		t.Fatalf("open trade duration %d, want 2", trades[0].Duration)
	}
}

func TestSegmentTradesCompoundLeveragedReturn(t *testing.T) {
	// Two days held at 3x over a +10% price move: the trade return is the
	// compounded leveraged equity, roughly +31%, not the raw +10% move.
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []models.ChartPoint{
		{Date: base, Close: 100, Equity: 1.0, Regime: 0},
		{Date: base.AddDate(0, 0, 1), Close: 100, Equity: 1.0, Regime: 1, Leverage: 3, TargetPosition: 3},
		{Date: base.AddDate(0, 0, 2), Close: 105, Equity: 1.15, Regime: 1, Leverage: 3, TargetPosition: 3},
		{Date: base.AddDate(0, 0, 3), Close: 110, Equity: 1.15 * (1 + 3*(110.0/105.0-1)), Regime: 0},
	}
	trades := SegmentTrades(points)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	want := points[3].Equity/points[1].Equity - 1
	if math.Abs(tr.Return-want) > 1e-12 {
		t.Fatalf("trade return %v, want compounded %v", tr.Return, want)
	}
	if tr.Return < 0.25 {
		t.Fatalf("3x trade on a 10%% move must return well over the raw move, got %v", tr.Return)
	}
	if tr.Regime != 1 {
		t.Fatalf("trade regime %d, want entry regime 1", tr.Regime)
	}
	if tr.AvgLeverage != 3 {
		t.Fatalf("avg leverage %v, want 3", tr.AvgLeverage)
	}
	if tr.Duration != 2 {
		t.Fatalf("duration %d, want 2", tr.Duration)
	}
}

func TestSegmentTradesAllFlat(t *testing.T) {
	if trades := SegmentTrades(mkPoints([]float64{0, 0, 0})); len(trades) != 0 {
		t.Fatalf("flat series must produce no trades")
	}
}

func TestComputeMetricsExcludesOpenTrade(t *testing.T) {
	points := mkPoints([]float64{1, 0, 1, 1})
	points[0].Equity = 1.0
	points[1].Equity = 1.05
	points[2].Equity = 1.05
	points[3].Equity = 1.10
	points[0].BuyHoldEquity = 1.0
	points[3].BuyHoldEquity = 1.03
	trades := SegmentTrades(points)
	m := ComputeMetrics(points, []float64{0.05, 0, 0.0476}, trades)

	if m.TradeCount != 2 {
		t.Fatalf("trade count %d, want 2", m.TradeCount)
	}
	// Only the first, closed, winning trade counts toward win rate.
	if m.WinRate != 1.0 {
		t.Fatalf("win rate %v, want 1.0", m.WinRate)
	}
	if !math.IsInf(float64(m.ProfitFactor), 1) {
		t.Fatalf("no losses must yield +Inf profit factor, got %v", float64(m.ProfitFactor))
	}
	if math.Abs(m.TotalReturn-0.10) > 1e-12 {
		t.Fatalf("total return %v, want 0.10", m.TotalReturn)
	}
}

func TestAvgLeverageInvestedDaysOnly(t *testing.T) {
	// Invested half the time at 2x: the mean size is 2.0, not diluted by
	// the flat days.
	points := mkPoints([]float64{0, 2, 2, 0})
	for i := range points {
		points[i].Equity = 1.0
		points[i].BuyHoldEquity = 1.0
	}
	m := ComputeMetrics(points, []float64{0, 0, 0}, nil)
	if m.AvgLeverage != 2.0 {
		t.Fatalf("avg leverage %v, want 2.0", m.AvgLeverage)
	}
}

func TestComputeMetricsFlat(t *testing.T) {
	points := mkPoints([]float64{0, 0, 0})
	for i := range points {
		points[i].Equity = 1.0
		points[i].BuyHoldEquity = 1.0
	}
	m := ComputeMetrics(points, []float64{0, 0}, nil)
	if m.TotalReturn != 0 || m.Sharpe != 0 || m.MaxDrawdown != 0 || m.AvgLeverage != 0 {
		t.Fatalf("flat run must have zero metrics: %+v", m)
	}
}

func TestProfitFactorInfSerialization(t *testing.T) {
	b, err := models.JSONFloat(math.Inf(1)).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"inf"` {
		t.Fatalf("got %s, want \"inf\"", b)
	}
	var f models.JSONFloat
	if err := f.UnmarshalJSON([]byte(`"inf"`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsInf(float64(f), 1) {
		t.Fatalf("round trip lost infinity")
	}
}
