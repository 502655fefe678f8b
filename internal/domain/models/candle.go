package models

import "time"

// Candle represents an OHLCV record, one per trading period.
// Daily bars in training/backtest, configurable interval in live mode.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Tick is a single trade print from a live market stream.
type Tick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

// FeatureRow holds the engineered features for one bar. Rows exist only once
// their rolling windows are fully populated; warmup rows are dropped upstream.
type FeatureRow struct {
	Bucket      time.Time
	Close       float64
	LogReturn   float64
	Volatility  float64 // 10-period rolling sample stdev of log returns
	DownsideVol float64 // same window, negative returns only (zero-filled)
	ForwardVol  float64 // next period's volatility; training target
	HasForward  bool    // false for the most recent row
	Regime      int     // canonical regime, set after classification
}
