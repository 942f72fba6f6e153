package forecast

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"SignalSentinel/internal/model"
)

// Linear is an autoregressive model on the close column:
// forecast = Bias + sum(Weights[k] * close[k]) over the window.
type Linear struct {
	Instrument string    `json:"instrument"`
	Lookback   int       `json:"lookback"`
	Horizon    int       `json:"horizon"`
	Weights    []float64 `json:"weights"`
	Bias       float64   `json:"bias"`
	Samples    int       `json:"samples"`
	TrainedAt  time.Time `json:"trained_at"`
}

func (l *Linear) Name() string { return "linear" }

func (l *Linear) Infer(w model.FeatureWindow) (Result, error) {
	if len(w) == 0 {
		return Result{}, ErrEmptyWindow
	}
	if len(w) != len(l.Weights) {
		return Result{}, fmt.Errorf("linear model expects %d rows, got %d", len(l.Weights), len(w))
	}
	y := l.Bias
	for k, r := range w {
		y += l.Weights[k] * r[model.ColClose]
	}
	return Result{PredictedCloseNormalized: y}, nil
}

// TrainLinear fits weights by ridge-regularized least squares over the
// supervised pairs. The bias is not regularized.
func TrainLinear(pairs iter.Seq2[model.FeatureWindow, float64], lookback int, ridge float64) (*Linear, error) {
	if lookback <= 0 {
		return nil, errors.New("lookback must be positive")
	}
	if ridge < 0 {
		return nil, errors.New("ridge must be non-negative")
	}
	dim := lookback + 1
	xtx := make([][]float64, dim)
	for i := range xtx {
		xtx[i] = make([]float64, dim)
	}
	xty := make([]float64, dim)
	x := make([]float64, dim)

	samples := 0
	for w, target := range pairs {
		if len(w) != lookback {
			return nil, fmt.Errorf("window of %d rows, expected %d", len(w), lookback)
		}
		for k, r := range w {
			x[k] = r[model.ColClose]
		}
		x[lookback] = 1
		for i := 0; i < dim; i++ {
			xty[i] += x[i] * target
			for j := i; j < dim; j++ {
				xtx[i][j] += x[i] * x[j]
			}
		}
		samples++
	}
	if samples == 0 {
		return nil, errors.New("no training samples")
	}
	for i := 0; i < dim; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
		if i < lookback {
			xtx[i][i] += ridge * float64(samples)
		}
	}

	beta, err := solve(xtx, xty)
	if err != nil {
		return nil, fmt.Errorf("solve normal equations: %w", err)
	}
	return &Linear{
		Lookback:  lookback,
		Weights:   beta[:lookback],
		Bias:      beta[lookback],
		Samples:   samples,
		TrainedAt: time.Now().UTC(),
	}, nil
}

// solve runs Gaussian elimination with partial pivoting on a copy of a.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	for i := range a {
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-14 {
			return nil, errors.New("singular system")
		}
		m[col], m[pivot] = m[pivot], m[col]
		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			if f == 0 {
				continue
			}
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}
	out := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := m[r][n]
		for c := r + 1; c < n; c++ {
			s -= m[r][c] * out[c]
		}
		out[r] = s / m[r][r]
	}
	return out, nil
}
