package forecast

import (
	"fmt"

	"SignalSentinel/internal/calculator"
	"SignalSentinel/internal/model"
)

// MovingAverage forecasts the simple moving average of the last Period closes.
type MovingAverage struct {
	Period int
}

func (m MovingAverage) Name() string { return fmt.Sprintf("sma%d", m.Period) }

func (m MovingAverage) Infer(w model.FeatureWindow) (Result, error) {
	if len(w) == 0 {
		return Result{}, ErrEmptyWindow
	}
	sma, err := calculator.CalculateSMA(w.Closes(), m.Period)
	if err != nil {
		return Result{}, fmt.Errorf("moving average: %w", err)
	}
	return Result{PredictedCloseNormalized: sma}, nil
}
