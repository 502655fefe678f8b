package hmm

import "math"

// covRidge keeps covariance matrices invertible when a state collapses
// onto near-identical observations.
const covRidge = 1e-6

const log2Pi = 1.8378770664093453

// logGauss2 evaluates the log density of a 2-D Gaussian with mean mu and
// flattened covariance [c00 c01 c10 c11] at x.
func logGauss2(x, mu []float64, cov []float64) float64 {
	c00 := cov[0] + covRidge
	c01 := cov[1]
	c10 := cov[2]
	c11 := cov[3] + covRidge

	det := c00*c11 - c01*c10
	if det <= 0 {
		// force a diagonal fallback
		c01, c10 = 0, 0
		det = c00 * c11
	}

	// closed-form 2x2 inverse
	i00 := c11 / det
	i01 := -c01 / det
	i10 := -c10 / det
	i11 := c00 / det

	d0 := x[0] - mu[0]
	d1 := x[1] - mu[1]
	maha := d0*(i00*d0+i01*d1) + d1*(i10*d0+i11*d1)

	return -0.5 * (2*log2Pi + math.Log(det) + maha)
}

// logSumExp returns log(sum(exp(xs))) guarding against underflow.
func logSumExp(xs []float64) float64 {
	max := math.Inf(-1)
	for _, v := range xs {
		if v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	sum := 0.0
	for _, v := range xs {
		sum += math.Exp(v - max)
	}
	return max + math.Log(sum)
}
