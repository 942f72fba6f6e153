// Package window slices a normalized series into fixed-length lookback windows.
package window

import (
	"errors"
	"fmt"
	"iter"

	"SignalSentinel/internal/model"
)

var (
	ErrWindowTooLarge      = errors.New("lookback plus horizon exceeds series length")
	ErrInsufficientHistory = errors.New("insufficient history for lookback window")
	ErrInvalidWindow       = errors.New("invalid window parameters")
)

const (
	DefaultLookback = 48
	DefaultHorizon  = 1
)

// Count returns the number of supervised pairs BuildWindows yields.
func Count(n, lookback, horizon int) int {
	c := n - horizon - lookback
	if c < 0 {
		return 0
	}
	return c
}

// BuildWindows returns a restartable sequence of (window, target close)
// pairs. For every i in [lookback, len(series)-horizon) the window is
// series[i-lookback:i] and the target is the close of series[i+horizon].
func BuildWindows(series []model.FeatureRow, lookback, horizon int) (iter.Seq2[model.FeatureWindow, float64], error) {
	if lookback <= 0 || horizon < 0 {
		return nil, fmt.Errorf("%w: lookback=%d horizon=%d", ErrInvalidWindow, lookback, horizon)
	}
	if lookback+horizon >= len(series) {
		return nil, fmt.Errorf("%w: lookback=%d horizon=%d rows=%d", ErrWindowTooLarge, lookback, horizon, len(series))
	}
	return func(yield func(model.FeatureWindow, float64) bool) {
		for i := lookback; i < len(series)-horizon; i++ {
			w := model.FeatureWindow(series[i-lookback : i : i])
			if !yield(w, series[i+horizon][model.ColClose]) {
				return
			}
		}
	}, nil
}

// BuildLatestWindow copies the most recent lookback rows.
func BuildLatestWindow(series []model.FeatureRow, lookback int) (model.FeatureWindow, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("%w: lookback=%d", ErrInvalidWindow, lookback)
	}
	if len(series) < lookback {
		return nil, fmt.Errorf("%w: have %d rows, need %d", ErrInsufficientHistory, len(series), lookback)
	}
	w := make(model.FeatureWindow, lookback)
	copy(w, series[len(series)-lookback:])
	return w, nil
}
