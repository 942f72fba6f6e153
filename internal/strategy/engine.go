package strategy

import (
	"errors"
	"fmt"
	"math"

	"SignalSentinel/internal/model"
)

// ErrInvalidForecast is returned for non-finite prices.
var ErrInvalidForecast = errors.New("invalid forecast")

// Thresholds are absolute price differences. A forecast must beat them strictly.
type Thresholds struct {
	Buy  float64 `yaml:"buy_threshold" json:"buy_threshold"`
	Sell float64 `yaml:"sell_threshold" json:"sell_threshold"`
}

// DefaultThresholds applies to instruments without an override.
var DefaultThresholds = Thresholds{Buy: 0.1, Sell: -0.1}

// ThresholdSet resolves thresholds per instrument.
type ThresholdSet struct {
	Default   Thresholds
	Overrides map[string]Thresholds
}

// NewThresholdSet starts from DefaultThresholds.
func NewThresholdSet() *ThresholdSet {
	return &ThresholdSet{Default: DefaultThresholds, Overrides: make(map[string]Thresholds)}
}

// Set overrides the thresholds of one instrument.
func (ts *ThresholdSet) Set(instrument string, th Thresholds) {
	ts.Overrides[instrument] = th
}

// For returns the thresholds that apply to instrument.
func (ts *ThresholdSet) For(instrument string) Thresholds {
	if ts == nil {
		return DefaultThresholds
	}
	if th, ok := ts.Overrides[instrument]; ok {
		return th
	}
	return ts.Default
}

// Decide maps the forecast move to a signal:
// diff > Buy is buy, diff < Sell is sell, anything else is hold.
func Decide(lastClose, predictedClose float64, th Thresholds) (model.Signal, error) {
	if !finite(lastClose) || !finite(predictedClose) {
		return "", fmt.Errorf("%w: last=%v predicted=%v", ErrInvalidForecast, lastClose, predictedClose)
	}
	diff := predictedClose - lastClose
	switch {
	case diff > th.Buy:
		return model.SignalBuy, nil
	case diff < th.Sell:
		return model.SignalSell, nil
	default:
		return model.SignalHold, nil
	}
}

// Validate checks that the sell threshold does not exceed the buy threshold.
func (th Thresholds) Validate() error {
	if !finite(th.Buy) || !finite(th.Sell) {
		return errors.New("thresholds must be finite")
	}
	if th.Sell > th.Buy {
		return fmt.Errorf("sell threshold %v exceeds buy threshold %v", th.Sell, th.Buy)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
