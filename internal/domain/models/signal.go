package models

import "time"

// Signal is the action a strategy evaluation resolves to.
type Signal int

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
	// SignalInsufficient means there was not enough history to evaluate.
	SignalInsufficient
)

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	case SignalInsufficient:
		return "INSUFFICIENT"
	default:
		return "HOLD"
	}
}

// RegimeLabel names a canonical regime for operator-facing output.
// Regime 0 is always the calmest state, N-1 the most turbulent.
func RegimeLabel(regime, nStates int) string {
	switch {
	case regime == 0:
		return "Safe"
	case regime == nStates-1:
		return "Crash"
	default:
		return "Normal"
	}
}

// SignalResult is the ephemeral output of one strategy evaluation.
// It is recomputed every cycle and never persisted.
type SignalResult struct {
	Symbol         string    `json:"symbol"`
	Timestamp      time.Time `json:"timestamp"`
	EMASignal      int       `json:"ema_signal"` // 1 bullish, 0 bearish
	EMAShort       float64   `json:"ema_short"`
	EMALong        float64   `json:"ema_long"`
	Regime         int       `json:"regime"`
	RegimeLabel    string    `json:"regime_label"`
	PredictedVol   float64   `json:"predicted_vol"`
	CurrentVol     float64   `json:"current_vol"`
	RiskRatio      float64   `json:"risk_ratio"`
	Multiplier     float64   `json:"position_size_multiplier"`
	TargetPosition float64   `json:"target_position"`
	ClosePrice     float64   `json:"close_price"`
	Reasoning      string    `json:"reasoning"`
}
