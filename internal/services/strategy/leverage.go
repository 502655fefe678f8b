package strategy

import "fmt"

// EMA spans for the trend filter.
const (
	EMAShortSpan = 12
	EMALongSpan  = 26
)

// Multiplier maps the canonical regime and the risk ratio (predicted vol
// over average training vol) to a position size multiplier. Rules apply
// first match wins; any regime outside the explicit tiers sizes flat 1x.
func Multiplier(regime, nStates int, riskRatio float64) float64 {
	switch {
	case regime == nStates-1:
		return 0.0
	case regime == 0:
		switch {
		case riskRatio < 0.5:
			return 3.0
		case riskRatio < 0.85:
			return 2.0
		default:
			return 1.0
		}
	case regime == 1:
		switch {
		case riskRatio < 0.5:
			return 2.0
		case riskRatio > 1.2:
			return 0.5
		default:
			return 1.0
		}
	default:
		return 1.0
	}
}

// Reasoning renders the operator-facing explanation for a sizing decision.
func Reasoning(regimeLabel string, regime int, riskRatio, multiplier float64, bullish bool) string {
	trend := "bearish"
	if bullish {
		trend = "bullish"
	}
	return fmt.Sprintf("regime=%s(%d) risk_ratio=%.2f trend=%s leverage=%.1fx",
		regimeLabel, regime, riskRatio, trend, multiplier)
}
