package features

import (
	"math"

	"Quantra/internal/domain/models"
)

// VolWindow is the rolling window, in bars, for realized volatility.
const VolWindow = 10

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RollingStd computes the rolling sample standard deviation of xs over the
// given window. Index i of the result covers xs[i-window+1 .. i]; the first
// window-1 entries are NaN.
func RollingStd(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 1 || len(xs) < window {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		sum, sum2 := 0.0, 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += xs[j]
			sum2 += xs[j] * xs[j]
		}
		n := float64(window)
		mean := sum / n
		variance := (sum2 - n*mean*mean) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

// Extract builds the engineered feature series from candles. Warmup rows,
// those whose rolling windows are not fully populated, are dropped, so the
// output has len(candles)-VolWindow rows. The final row has HasForward false.
// Returns nil if there is not enough history for a single complete row.
func Extract(candles []models.Candle) []models.FeatureRow {
	rets := ComputeLogReturns(candles)
	if len(rets) < VolWindow {
		return nil
	}

	// Downside series zero-fills positive returns so the rolling stdev
	// captures only drawdown-side dispersion.
	downside := make([]float64, len(rets))
	for i, r := range rets {
		if r < 0 {
			downside[i] = r
		}
	}

	vol := RollingStd(rets, VolWindow)
	dvol := RollingStd(downside, VolWindow)

	rows := make([]models.FeatureRow, 0, len(rets)-VolWindow+1)
	for i := VolWindow - 1; i < len(rets); i++ {
		// rets[i] is the return into candle i+1.
		c := candles[i+1]
		row := models.FeatureRow{
			Bucket:      c.Bucket,
			Close:       c.Close,
			LogReturn:   rets[i],
			Volatility:  vol[i],
			DownsideVol: dvol[i],
		}
		if i+1 < len(rets) {
			row.ForwardVol = vol[i+1]
			row.HasForward = true
		}
		rows = append(rows, row)
	}
	return rows
}

// EMA computes an exponential moving average with smoothing 2/(span+1),
// seeded with the first value.
func EMA(xs []float64, span int) []float64 {
	if len(xs) == 0 || span <= 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(xs))
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// AnnualizedVol scales a per-bar sigma to an annual figure.
func AnnualizedVol(sigma, barsPerYear float64) float64 {
	return sigma * math.Sqrt(barsPerYear)
}
