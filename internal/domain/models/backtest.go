package models

import (
	"encoding/json"
	"math"
	"time"
)

// JSONFloat marshals like a plain float64 but survives non-finite values,
// encoding +Inf as "inf" and NaN as null. Profit factor with zero losing
// trades is a legitimate +Inf.
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	case math.IsNaN(v):
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *JSONFloat) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"inf"`:
		*f = JSONFloat(math.Inf(1))
		return nil
	case `"-inf"`:
		*f = JSONFloat(math.Inf(-1))
		return nil
	case "null":
		*f = JSONFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = JSONFloat(v)
	return nil
}

// ChartPoint is one test-period sample of a backtest equity curve.
type ChartPoint struct {
	Date           time.Time `json:"date"`
	Close          float64   `json:"close"`
	Equity         float64   `json:"equity"`
	BuyHoldEquity  float64   `json:"buy_hold_equity"`
	Regime         int       `json:"regime"`
	Leverage       float64   `json:"leverage"`
	TargetPosition float64   `json:"target_position"`
}

// TradeRecord is one round trip extracted from a position series. Return
// is the compounded leveraged strategy return over the run, not the raw
// price move.
type TradeRecord struct {
	EntryDate   time.Time `json:"entry_date"`
	ExitDate    time.Time `json:"exit_date"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	Return      float64   `json:"return"`
	Regime      int       `json:"regime"`
	AvgLeverage float64   `json:"avg_leverage"`
	Duration    int       `json:"duration_days"`
	Open        bool      `json:"open"`
}

// BacktestMetrics aggregates performance over the test window.
type BacktestMetrics struct {
	TotalReturn    float64   `json:"total_return"`
	BuyHoldReturn  float64   `json:"buy_hold_return"`
	Sharpe         float64   `json:"sharpe_ratio"`
	Sortino        JSONFloat `json:"sortino_ratio"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	WinRate        float64   `json:"win_rate"`
	ProfitFactor   JSONFloat `json:"profit_factor"`
	RiskReward     JSONFloat `json:"risk_reward"`
	RecoveryFactor JSONFloat `json:"recovery_factor"`
	AvgLeverage    float64   `json:"avg_leverage"`
	TradeCount     int       `json:"trade_count"`
	TestDays       int       `json:"test_days"`
}

// BacktestResult is the full output of one walk-forward run.
type BacktestResult struct {
	Symbol    string          `json:"symbol"`
	Mode      string          `json:"mode"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	TrainBars int             `json:"train_bars"`
	Metrics   BacktestMetrics `json:"metrics"`
	Chart     []ChartPoint    `json:"chart"`
	Trades    []TradeRecord   `json:"trades"`
}
