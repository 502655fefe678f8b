package backtest

import "Quantra/internal/domain/models"

// SegmentTrades extracts round trips from a position series. A trade opens
// when exposure moves off zero and closes when it returns to zero. Return
// compounds the leveraged equity over the run, so a 3x trade on a 10% move
// reports roughly 30%, not 10%. Regime is the regime at entry and
// AvgLeverage the mean multiplier over the days the run was held. A run
// still held on the final day is reported with Open=true.
func SegmentTrades(points []models.ChartPoint) []models.TradeRecord {
	var out []models.TradeRecord
	inTrade := false
	var entry models.ChartPoint
	var days int
	var levSum float64

	finish := func(exit models.ChartPoint, open bool) models.TradeRecord {
		r := models.TradeRecord{
			EntryDate:  entry.Date,
			ExitDate:   exit.Date,
			EntryPrice: entry.Close,
			ExitPrice:  exit.Close,
			Regime:     entry.Regime,
			Duration:   days,
			Open:       open,
		}
		if entry.Equity > 0 {
			r.Return = exit.Equity/entry.Equity - 1
		}
		if days > 0 {
			r.AvgLeverage = levSum / float64(days)
		}
		return r
	}

	for _, p := range points {
		if p.TargetPosition > 0 {
			if !inTrade {
				inTrade = true
				entry = p
				days = 0
				levSum = 0
			}
			days++
			levSum += p.Leverage
			continue
		}
		if inTrade {
			out = append(out, finish(p, false))
			inTrade = false
		}
	}
	if inTrade {
		out = append(out, finish(points[len(points)-1], true))
	}
	return out
}
