package svr

import (
	"fmt"
	"math"

	"Quantra/internal/domain/models"
)

// Config holds the epsilon-SVR hyperparameters. Training is a deterministic
// cyclic subgradient pass over the samples, so a given dataset and config
// always produce the same fit.
type Config struct {
	C       float64
	Gamma   float64
	Epsilon float64
	Sweeps  int
	LR      float64
}

// DefaultConfig mirrors the production forecaster settings.
func DefaultConfig() Config {
	return Config{C: 100, Gamma: 0.1, Epsilon: 0.01, Sweeps: 100, LR: 0.1}
}

// rbf evaluates exp(-gamma * ||a-b||^2).
func rbf(a, b []float64, gamma float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-gamma * d)
}

// Train fits an RBF epsilon-SVR on X, y. Inputs and target are standardized
// internally; the returned parameters carry the scaling so Predict accepts
// raw features and returns raw targets.
func Train(X [][]float64, y []float64, cfg Config) (models.SVRParams, error) {
	var p models.SVRParams
	n := len(X)
	if n == 0 || n != len(y) {
		return p, fmt.Errorf("svr: %d samples vs %d targets", n, len(y))
	}
	dim := len(X[0])
	if dim == 0 {
		return p, fmt.Errorf("svr: empty feature vectors")
	}
	if cfg.Sweeps <= 0 {
		cfg.Sweeps = 100
	}
	if cfg.LR <= 0 {
		cfg.LR = 0.1
	}

	fm, fs := fitScaler(X)
	tm, ts := meanStd(y)
	if ts == 0 {
		ts = 1
	}

	xs := make([][]float64, n)
	for i, row := range X {
		xs[i] = applyScaler(row, fm, fs)
	}
	ys := make([]float64, n)
	for i, v := range y {
		ys[i] = (v - tm) / ts
	}

	// Precompute the kernel matrix once; n stays in the hundreds for
	// daily-bar training windows.
	K := make([][]float64, n)
	for i := 0; i < n; i++ {
		K[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			K[i][j] = rbf(xs[i], xs[j], cfg.Gamma)
		}
	}

	beta := make([]float64, n)
	f := make([]float64, n) // cached f(x_i) excluding bias
	bias := 0.0
	decay := 1.0 / (cfg.C * float64(n))

	for sweep := 0; sweep < cfg.Sweeps; sweep++ {
		for i := 0; i < n; i++ {
			r := ys[i] - (f[i] + bias)
			if math.Abs(r) <= cfg.Epsilon {
				continue
			}
			step := cfg.LR
			if r < 0 {
				step = -step
			}
			old := beta[i]
			nb := old + step
			if nb > cfg.C {
				nb = cfg.C
			} else if nb < -cfg.C {
				nb = -cfg.C
			}
			delta := nb - old
			if delta == 0 {
				continue
			}
			beta[i] = nb
			bias += step * 0.1
			for j := 0; j < n; j++ {
				f[j] += delta * K[i][j]
			}
		}
		// mild shrinkage keeps the expansion from overfitting noise
		for i := 0; i < n; i++ {
			if beta[i] == 0 {
				continue
			}
			shrunk := beta[i] * (1 - cfg.LR*decay)
			delta := shrunk - beta[i]
			beta[i] = shrunk
			for j := 0; j < n; j++ {
				f[j] += delta * K[i][j]
			}
		}
	}

	// Keep only support vectors.
	var supX [][]float64
	var supB []float64
	for i := 0; i < n; i++ {
		if math.Abs(beta[i]) > 1e-10 {
			supX = append(supX, xs[i])
			supB = append(supB, beta[i])
		}
	}
	if len(supX) == 0 {
		// flat target inside the epsilon tube; the bias carries the fit
		supX = [][]float64{xs[0]}
		supB = []float64{0}
	}

	return models.SVRParams{
		C:          cfg.C,
		Gamma:      cfg.Gamma,
		Epsilon:    cfg.Epsilon,
		SupportX:   supX,
		Beta:       supB,
		Bias:       bias,
		FeatMean:   fm,
		FeatStd:    fs,
		TargetMean: tm,
		TargetStd:  ts,
	}, nil
}

// Predict evaluates the fitted model on a raw feature vector.
func Predict(p *models.SVRParams, x []float64) float64 {
	xsc := applyScaler(x, p.FeatMean, p.FeatStd)
	sum := p.Bias
	for i, sv := range p.SupportX {
		sum += p.Beta[i] * rbf(sv, xsc, p.Gamma)
	}
	return sum*p.TargetStd + p.TargetMean
}

func fitScaler(X [][]float64) (mean, std []float64) {
	n := float64(len(X))
	dim := len(X[0])
	mean = make([]float64, dim)
	std = make([]float64, dim)
	for _, row := range X {
		for d, v := range row {
			mean[d] += v
		}
	}
	for d := range mean {
		mean[d] /= n
	}
	for _, row := range X {
		for d, v := range row {
			diff := v - mean[d]
			std[d] += diff * diff
		}
	}
	// Sample stdev, matching the feature extractor's convention.
	div := n - 1
	if div < 1 {
		div = 1
	}
	for d := range std {
		std[d] = math.Sqrt(std[d] / div)
		if std[d] == 0 {
			std[d] = 1
		}
	}
	return mean, std
}

func applyScaler(x, mean, std []float64) []float64 {
	out := make([]float64, len(x))
	for d := range x {
		out[d] = (x[d] - mean[d]) / std[d]
	}
	return out
}

func meanStd(xs []float64) (float64, float64) {
	n := float64(len(xs))
	m := 0.0
	for _, v := range xs {
		m += v
	}
	m /= n
	s := 0.0
	for _, v := range xs {
		d := v - m
		s += d * d
	}
	div := n - 1
	if div < 1 {
		div = 1
	}
	return m, math.Sqrt(s / div)
}
