package hmm

import (
	"math"
	"sort"

	"Quantra/internal/domain/models"
)

// Viterbi returns the most likely raw state sequence for obs under p.
func Viterbi(p *models.HMMParams, obs [][]float64) []int {
	n := p.NStates
	T := len(obs)
	if T == 0 {
		return nil
	}

	delta := make([][]float64, T)
	back := make([][]int, T)
	delta[0] = make([]float64, n)
	back[0] = make([]int, n)
	for i := 0; i < n; i++ {
		delta[0][i] = safeLog(p.Pi[i]) + logGauss2(obs[0], p.Means[i], p.Covs[i])
	}
	for t := 1; t < T; t++ {
		delta[t] = make([]float64, n)
		back[t] = make([]int, n)
		for i := 0; i < n; i++ {
			best, bestJ := math.Inf(-1), 0
			for j := 0; j < n; j++ {
				v := delta[t-1][j] + safeLog(p.Trans[j][i])
				if v > best {
					best, bestJ = v, j
				}
			}
			delta[t][i] = best + logGauss2(obs[t], p.Means[i], p.Covs[i])
			back[t][i] = bestJ
		}
	}

	states := make([]int, T)
	best, bestI := math.Inf(-1), 0
	for i := 0; i < n; i++ {
		if delta[T-1][i] > best {
			best, bestI = delta[T-1][i], i
		}
	}
	states[T-1] = bestI
	for t := T - 2; t >= 0; t-- {
		states[t] = back[t+1][states[t+1]]
	}
	return states
}

// DecodeRegimes decodes obs and maps raw states through the canonical
// regime remapping, so 0 is always the calmest regime and NStates-1 the
// most turbulent.
func DecodeRegimes(p *models.HMMParams, obs [][]float64) []int {
	raw := Viterbi(p, obs)
	out := make([]int, len(raw))
	for i, s := range raw {
		out[i] = p.StateMap[s]
	}
	return out
}

// canonicalMap orders raw states by the mean observed volatility of the
// bars Viterbi assigns to each. A state that captures no bars gets mean 0,
// which sorts it first. Ties go to the state holding more bars, so a
// zero-volatility series still decodes as the calmest regime rather than
// landing on whichever empty state the raw index order favors.
func canonicalMap(p *models.HMMParams, obs [][]float64) []int {
	n := p.NStates
	states := Viterbi(p, obs)

	sums := make([]float64, n)
	counts := make([]int, n)
	for t, s := range states {
		sums[s] += obs[t][1]
		counts[s]++
	}
	meanVol := make([]float64, n)
	for i := 0; i < n; i++ {
		if counts[i] > 0 {
			meanVol[i] = sums[i] / float64(counts[i])
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := meanVol[order[a]], meanVol[order[b]]
		if va != vb {
			return va < vb
		}
		return counts[order[a]] > counts[order[b]]
	})

	mapping := make([]int, n)
	for rank, raw := range order {
		mapping[raw] = rank
	}
	return mapping
}
