package calculator

import (
	"errors"
	"math"

	"SignalSentinel/internal/model"
)

// ColumnRange scans all bars and returns the per-column low and high.
func ColumnRange(bars []model.OHLCV) (low, high [model.NumColumns]float64, err error) {
	if len(bars) == 0 {
		return low, high, errors.New("no bars provided")
	}
	for c := 0; c < model.NumColumns; c++ {
		low[c] = math.Inf(1)
		high[c] = math.Inf(-1)
	}
	for _, b := range bars {
		vals := b.Values()
		for c, v := range vals {
			if v < low[c] {
				low[c] = v
			}
			if v > high[c] {
				high[c] = v
			}
		}
	}
	return low, high, nil
}

// RangePosition returns where v sits within [low, high] as a fraction.
// Values outside the range are not clamped. A flat range yields 0.
func RangePosition(v, low, high float64) float64 {
	span := high - low
	if span == 0 {
		return 0
	}
	return (v - low) / span
}

// FromRangePosition is the inverse of RangePosition. A flat range yields low.
func FromRangePosition(pos, low, high float64) float64 {
	return pos*(high-low) + low
}
