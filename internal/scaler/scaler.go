// Package scaler fits and applies the per-instrument min-max normalization
// that maps raw OHLCV bars into the space the forecaster operates in.
package scaler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/model"
)

var (
	// ErrInsufficientData is returned when a fitting series has fewer than two bars.
	ErrInsufficientData = errors.New("insufficient data to fit scaler")
	// ErrNotFitted is returned when no state exists for an instrument.
	ErrNotFitted = errors.New("scaler not fitted")
)

// MinFitRows is the smallest series Fit accepts.
const MinFitRows = 2

// State holds the fitted per-column bounds for one instrument.
//
// A column whose min equals its max is degenerate: Transform maps every
// value of it to 0 and Inverse maps every value back to the constant.
type State struct {
	Instrument string                    `json:"instrument"`
	Min        [model.NumColumns]float64 `json:"min"`
	Max        [model.NumColumns]float64 `json:"max"`
	Rows       int                       `json:"rows"`
	FittedAt   time.Time                 `json:"fitted_at"`
}

// Fit computes per-column min and max over the whole series.
func Fit(instrument string, series []model.OHLCV) (*State, error) {
	if len(series) < MinFitRows {
		return nil, fmt.Errorf("%w: %s has %d rows, need %d", ErrInsufficientData, instrument, len(series), MinFitRows)
	}
	low, high, err := calculator.ColumnRange(series)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", instrument, err)
	}
	st := &State{
		Instrument: instrument,
		Min:        low,
		Max:        high,
		Rows:       len(series),
		FittedAt:   time.Now().UTC(),
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

// Validate rejects states with non-finite or inverted bounds.
func (s *State) Validate() error {
	for c := 0; c < model.NumColumns; c++ {
		lo, hi := s.Min[c], s.Max[c]
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return fmt.Errorf("scaler %s: column %s has non-finite bounds", s.Instrument, model.Column(c))
		}
		if hi < lo {
			return fmt.Errorf("scaler %s: column %s max %v < min %v", s.Instrument, model.Column(c), hi, lo)
		}
	}
	return nil
}

// Degenerate reports whether col was constant in the fitting series.
func (s *State) Degenerate(col model.Column) bool {
	return s.Max[col] == s.Min[col]
}

// Transform maps raw bars into normalized space. No clamping is applied.
func (s *State) Transform(rows []model.OHLCV) []model.FeatureRow {
	out := make([]model.FeatureRow, len(rows))
	for i, b := range rows {
		vals := b.Values()
		for c, v := range vals {
			out[i][c] = calculator.RangePosition(v, s.Min[c], s.Max[c])
		}
	}
	return out
}

// TransformValue maps a single raw value of col.
func (s *State) TransformValue(v float64, col model.Column) float64 {
	return calculator.RangePosition(v, s.Min[col], s.Max[col])
}

// Inverse maps a normalized value of col back to raw space.
func (s *State) Inverse(v float64, col model.Column) float64 {
	return calculator.FromRangePosition(v, s.Min[col], s.Max[col])
}

// InverseTransform maps normalized values of col back to raw space.
func (s *State) InverseTransform(values []float64, col model.Column) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Inverse(v, col)
	}
	return out
}

// InverseRows maps whole normalized rows back to raw column values.
func (s *State) InverseRows(rows []model.FeatureRow) [][model.NumColumns]float64 {
	out := make([][model.NumColumns]float64, len(rows))
	for i, r := range rows {
		for c := 0; c < model.NumColumns; c++ {
			out[i][c] = s.Inverse(r[c], model.Column(c))
		}
	}
	return out
}
