package models

import "time"

// HMMParams holds the fitted parameters of a Gaussian hidden Markov model.
// Observations are 2-dimensional: scaled log return and scaled volatility.
type HMMParams struct {
	NStates   int
	Pi        []float64   // initial state distribution, len NStates
	Trans     [][]float64 // row-stochastic transition matrix, NStates x NStates
	Means     [][]float64 // per-state observation mean, NStates x 2
	Covs      [][]float64 // per-state flattened 2x2 covariance [c00 c01 c10 c11]
	StateMap  []int       // raw state index -> canonical regime
	LogLik    float64     // final training log-likelihood
	Converged bool
}

// SVRParams holds a fitted epsilon-SVR with RBF kernel in representer form:
// f(x) = sum_i Beta[i] * K(SupportX[i], x) + Bias, evaluated on scaled inputs.
type SVRParams struct {
	C        float64
	Gamma    float64
	Epsilon  float64
	SupportX [][]float64
	Beta     []float64
	Bias     float64

	// Per-feature standardization, fit on the training window only.
	FeatMean []float64
	FeatStd  []float64
	// Target standardization.
	TargetMean float64
	TargetStd  float64
}

// TrainedModel is the unit of persistence: one fitted model pair per symbol.
type TrainedModel struct {
	Symbol      string
	HMM         HMMParams
	SVR         SVRParams
	TrainedAt   time.Time
	TrainBars   int     // feature rows the fit consumed
	AvgTrainVol float64 // mean rolling volatility over the training window
}

// ModelInfo is the metadata view exposed over the API.
type ModelInfo struct {
	Symbol      string    `json:"symbol"`
	NStates     int       `json:"n_states"`
	TrainedAt   time.Time `json:"trained_at"`
	TrainBars   int       `json:"train_bars"`
	AvgTrainVol float64   `json:"avg_train_vol"`
	Converged   bool      `json:"converged"`
}

// Info projects the metadata view of a trained model.
func (m *TrainedModel) Info() ModelInfo {
	return ModelInfo{
		Symbol:      m.Symbol,
		NStates:     m.HMM.NStates,
		TrainedAt:   m.TrainedAt,
		TrainBars:   m.TrainBars,
		AvgTrainVol: m.AvgTrainVol,
		Converged:   m.HMM.Converged,
	}
}
