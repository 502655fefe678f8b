package backtest

import (
	"math"

	"Quantra/internal/domain/models"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// Sharpe annualizes mean over stdev of daily returns. A zero-dispersion
// series scores 0 rather than blowing up.
func Sharpe(rets []float64) float64 {
	if len(rets) == 0 {
		return 0
	}
	m, s := meanStd(rets)
	if s == 0 {
		return 0
	}
	return m / s * math.Sqrt(TradingDaysPerYear)
}

// Sortino is Sharpe with dispersion measured over negative returns only.
// A series with no losing days yields +Inf.
func Sortino(rets []float64) float64 {
	if len(rets) == 0 {
		return 0
	}
	m := mean(rets)
	down := 0.0
	for _, r := range rets {
		if r < 0 {
			down += r * r
		}
	}
	if down == 0 {
		if m > 0 {
			return math.Inf(1)
		}
		return 0
	}
	dstd := math.Sqrt(down / float64(len(rets)))
	return m / dstd * math.Sqrt(TradingDaysPerYear)
}

// MaxDrawdown returns the deepest peak-to-trough fall of an equity curve,
// as a positive fraction.
func MaxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (peak - e) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// ComputeMetrics aggregates performance for one run. Open trades are
// excluded from win rate, profit factor, and risk:reward.
func ComputeMetrics(points []models.ChartPoint, dailyRets []float64, trades []models.TradeRecord) models.BacktestMetrics {
	var m models.BacktestMetrics
	m.TestDays = len(points)
	if len(points) > 0 {
		m.TotalReturn = points[len(points)-1].Equity - 1
		m.BuyHoldReturn = points[len(points)-1].BuyHoldEquity - 1
	}

	equity := make([]float64, len(points))
	levSum := 0.0
	levDays := 0
	for i, p := range points {
		equity[i] = p.Equity
		if p.TargetPosition > 0 {
			levSum += p.TargetPosition
			levDays++
		}
	}
	// Mean size over invested days only; flat days say nothing about sizing.
	if levDays > 0 {
		m.AvgLeverage = levSum / float64(levDays)
	}

	m.Sharpe = Sharpe(dailyRets)
	m.Sortino = models.JSONFloat(Sortino(dailyRets))
	m.MaxDrawdown = MaxDrawdown(equity)

	if m.MaxDrawdown > 0 {
		m.RecoveryFactor = models.JSONFloat(m.TotalReturn / m.MaxDrawdown)
	} else if m.TotalReturn > 0 {
		m.RecoveryFactor = models.JSONFloat(math.Inf(1))
	}

	m.TradeCount = len(trades)
	wins, losses := 0, 0
	grossWin, grossLoss := 0.0, 0.0
	for _, tr := range trades {
		if tr.Open {
			continue
		}
		if tr.Return > 0 {
			wins++
			grossWin += tr.Return
		} else if tr.Return < 0 {
			losses++
			grossLoss += -tr.Return
		} else {
			losses++
		}
	}
	closed := wins + losses
	if closed > 0 {
		m.WinRate = float64(wins) / float64(closed)
	}
	switch {
	case grossLoss > 0:
		m.ProfitFactor = models.JSONFloat(grossWin / grossLoss)
	case grossWin > 0:
		m.ProfitFactor = models.JSONFloat(math.Inf(1))
	}
	if wins > 0 {
		avgWin := grossWin / float64(wins)
		if losses > 0 && grossLoss > 0 {
			m.RiskReward = models.JSONFloat(avgWin / (grossLoss / float64(losses)))
		} else {
			m.RiskReward = models.JSONFloat(math.Inf(1))
		}
	}
	return m
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}

func meanStd(xs []float64) (float64, float64) {
	m := mean(xs)
	s := 0.0
	for _, v := range xs {
		d := v - m
		s += d * d
	}
	return m, math.Sqrt(s / float64(len(xs)))
}
