package model

import "time"

// Signal is the discrete recommendation derived from a forecast.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Valid reports whether s is one of the known signals.
func (s Signal) Valid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalHold:
		return true
	}
	return false
}

// RecordState is the reconciliation state of a prediction.
type RecordState string

const (
	StatePending   RecordState = "PENDING"
	StateEvaluated RecordState = "EVALUATED"
)

// PredictionRecord is one persisted prediction.
type PredictionRecord struct {
	ID             int64     `json:"id"`
	Instrument     string    `json:"instrument"`
	Signal         Signal    `json:"signal"`
	PredictedPrice float64   `json:"predicted_price"`
	ActualPrice    *float64  `json:"actual_price"`
	CreatedAt      time.Time `json:"created_at"`
}

// State reports whether the record still waits for an actual price.
func (r PredictionRecord) State() RecordState {
	if r.ActualPrice == nil {
		return StatePending
	}
	return StateEvaluated
}

// AccuracySummary aggregates correctness over evaluated records.
// NoData is set when nothing was evaluable; AccuracyPercent is then meaningless.
type AccuracySummary struct {
	TotalEvaluated  int     `json:"total_evaluated"`
	Correct         int     `json:"correct"`
	AccuracyPercent float64 `json:"accuracy_percent"`
	NoData          bool    `json:"no_data"`
}
