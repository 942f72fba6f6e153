// Package forecast defines the boundary between the pipeline and whatever
// regressor produces the next normalized close.
//
// Every Forecaster in this package is deterministic: the same window always
// yields the same result.
package forecast

import (
	"context"
	"errors"
	"fmt"

	"SignalSentinel/internal/model"
)

var (
	// ErrModelNotFound means no trained model exists for the instrument.
	ErrModelNotFound = errors.New("forecast model not found")
	ErrEmptyWindow   = errors.New("empty feature window")
)

// Result is one normalized close forecast.
type Result struct {
	PredictedCloseNormalized float64
}

// Forecaster turns a normalized window into a normalized close forecast.
type Forecaster interface {
	Infer(w model.FeatureWindow) (Result, error)
	Name() string
}

// Provider resolves the forecaster for an instrument.
type Provider interface {
	Forecaster(ctx context.Context, instrument string) (Forecaster, error)
}

// Static serves the same forecaster for every instrument.
type Static struct {
	F Forecaster
}

func (s Static) Forecaster(_ context.Context, _ string) (Forecaster, error) {
	if s.F == nil {
		return nil, fmt.Errorf("%w: no static forecaster configured", ErrModelNotFound)
	}
	return s.F, nil
}

// Persistence forecasts that the next close equals the last one.
type Persistence struct{}

func (Persistence) Name() string { return "persistence" }

func (Persistence) Infer(w model.FeatureWindow) (Result, error) {
	if len(w) == 0 {
		return Result{}, ErrEmptyWindow
	}
	return Result{PredictedCloseNormalized: w.Last()[model.ColClose]}, nil
}
