package hmm

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"Quantra/internal/domain/models"
)

// Config controls the expectation-maximization fit.
type Config struct {
	NStates int
	MaxIter int
	Tol     float64
	Seed    int64
}

// DefaultConfig mirrors the production training settings: three regimes,
// deterministic seed.
func DefaultConfig() Config {
	return Config{NStates: 3, MaxIter: 100, Tol: 1e-4, Seed: 42}
}

// Fit estimates a Gaussian HMM over 2-D observations with full covariance
// using EM. Initialization is deterministic for a given seed, so repeated
// fits on the same data produce identical parameters.
func Fit(obs [][]float64, cfg Config) (models.HMMParams, error) {
	n := cfg.NStates
	T := len(obs)
	var p models.HMMParams
	if n < 2 {
		return p, fmt.Errorf("hmm: need at least 2 states, got %d", n)
	}
	if T < n*5 {
		return p, fmt.Errorf("hmm: %d observations too few for %d states", T, n)
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 100
	}
	if cfg.Tol <= 0 {
		cfg.Tol = 1e-4
	}

	p = initParams(obs, cfg)

	logA := make([][]float64, n)
	logPi := make([]float64, n)
	prevLL := math.Inf(-1)

	for iter := 0; iter < cfg.MaxIter; iter++ {
		for i := 0; i < n; i++ {
			logPi[i] = safeLog(p.Pi[i])
			logA[i] = make([]float64, n)
			for j := 0; j < n; j++ {
				logA[i][j] = safeLog(p.Trans[i][j])
			}
		}

		// E-step in log space.
		logB := make([][]float64, T)
		for t := 0; t < T; t++ {
			logB[t] = make([]float64, n)
			for i := 0; i < n; i++ {
				logB[t][i] = logGauss2(obs[t], p.Means[i], p.Covs[i])
			}
		}

		la := make([][]float64, T)
		la[0] = make([]float64, n)
		for i := 0; i < n; i++ {
			la[0][i] = logPi[i] + logB[0][i]
		}
		tmp := make([]float64, n)
		for t := 1; t < T; t++ {
			la[t] = make([]float64, n)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					tmp[j] = la[t-1][j] + logA[j][i]
				}
				la[t][i] = logSumExp(tmp) + logB[t][i]
			}
		}
		ll := logSumExp(la[T-1])

		lb := make([][]float64, T)
		lb[T-1] = make([]float64, n)
		for t := T - 2; t >= 0; t-- {
			lb[t] = make([]float64, n)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					tmp[j] = logA[i][j] + logB[t+1][j] + lb[t+1][j]
				}
				lb[t][i] = logSumExp(tmp)
			}
		}

		gamma := make([][]float64, T)
		for t := 0; t < T; t++ {
			gamma[t] = make([]float64, n)
			for i := 0; i < n; i++ {
				gamma[t][i] = math.Exp(la[t][i] + lb[t][i] - ll)
			}
		}

		// M-step.
		for i := 0; i < n; i++ {
			p.Pi[i] = gamma[0][i]
		}
		for i := 0; i < n; i++ {
			denom := 0.0
			for t := 0; t < T-1; t++ {
				denom += gamma[t][i]
			}
			rowSum := 0.0
			for j := 0; j < n; j++ {
				num := 0.0
				for t := 0; t < T-1; t++ {
					num += math.Exp(la[t][i] + logA[i][j] + logB[t+1][j] + lb[t+1][j] - ll)
				}
				if denom > 0 {
					p.Trans[i][j] = num / denom
				} else {
					p.Trans[i][j] = 1.0 / float64(n)
				}
				rowSum += p.Trans[i][j]
			}
			if rowSum > 0 {
				for j := 0; j < n; j++ {
					p.Trans[i][j] /= rowSum
				}
			}
		}
		for i := 0; i < n; i++ {
			w := 0.0
			m0, m1 := 0.0, 0.0
			for t := 0; t < T; t++ {
				g := gamma[t][i]
				w += g
				m0 += g * obs[t][0]
				m1 += g * obs[t][1]
			}
			if w <= 0 {
				continue
			}
			m0 /= w
			m1 /= w
			c00, c01, c11 := 0.0, 0.0, 0.0
			for t := 0; t < T; t++ {
				g := gamma[t][i]
				d0 := obs[t][0] - m0
				d1 := obs[t][1] - m1
				c00 += g * d0 * d0
				c01 += g * d0 * d1
				c11 += g * d1 * d1
			}
			p.Means[i][0], p.Means[i][1] = m0, m1
			p.Covs[i][0] = c00/w + covRidge
			p.Covs[i][1] = c01 / w
			p.Covs[i][2] = c01 / w
			p.Covs[i][3] = c11/w + covRidge
		}

		p.LogLik = ll
		if iter > 0 && math.Abs(ll-prevLL) < cfg.Tol*(math.Abs(prevLL)+1) {
			p.Converged = true
			break
		}
		prevLL = ll
	}

	if math.IsNaN(p.LogLik) || math.IsInf(p.LogLik, 0) {
		return p, fmt.Errorf("hmm: degenerate fit, log-likelihood %v", p.LogLik)
	}

	p.StateMap = canonicalMap(&p, obs)
	return p, nil
}

// initParams seeds EM deterministically: observations are bucketed by the
// volatility dimension so each state starts near a distinct dispersion band.
func initParams(obs [][]float64, cfg Config) models.HMMParams {
	n := cfg.NStates
	T := len(obs)
	rng := rand.New(rand.NewSource(cfg.Seed))

	idx := make([]int, T)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return obs[idx[a]][1] < obs[idx[b]][1] })

	p := models.HMMParams{
		NStates: n,
		Pi:      make([]float64, n),
		Trans:   make([][]float64, n),
		Means:   make([][]float64, n),
		Covs:    make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		p.Pi[i] = 1.0 / float64(n)
		p.Trans[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				p.Trans[i][j] = 0.9
			} else {
				p.Trans[i][j] = 0.1 / float64(n-1)
			}
		}

		lo := i * T / n
		hi := (i + 1) * T / n
		if hi <= lo {
			hi = lo + 1
		}
		w := float64(hi - lo)
		m0, m1 := 0.0, 0.0
		for _, k := range idx[lo:hi] {
			m0 += obs[k][0]
			m1 += obs[k][1]
		}
		m0 /= w
		m1 /= w
		c00, c01, c11 := 0.0, 0.0, 0.0
		for _, k := range idx[lo:hi] {
			d0 := obs[k][0] - m0
			d1 := obs[k][1] - m1
			c00 += d0 * d0
			c01 += d0 * d1
			c11 += d1 * d1
		}
		p.Means[i] = []float64{
			m0 + rng.NormFloat64()*1e-3,
			m1 + rng.NormFloat64()*1e-3,
		}
		p.Covs[i] = []float64{c00/w + 1e-3, c01 / w, c01 / w, c11/w + 1e-3}
	}
	return p
}

func safeLog(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return math.Log(x)
}
