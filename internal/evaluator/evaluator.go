// Package evaluator scores persisted predictions against observed prices.
package evaluator

import (
	"math"

	"github.com/shopspring/decimal"

	"SignalSentinel/internal/model"
)

// HoldTolerance is the relative move under which a hold counts as correct.
const HoldTolerance = 0.001

// minPredicted guards the hold ratio against division by a near-zero price.
const minPredicted = 1e-12

// IsCorrect applies the per-signal predicate. Records without an actual
// price and unknown signals are never correct.
func IsCorrect(rec model.PredictionRecord) bool {
	if rec.ActualPrice == nil {
		return false
	}
	actual, predicted := *rec.ActualPrice, rec.PredictedPrice
	switch rec.Signal {
	case model.SignalBuy:
		return actual > predicted
	case model.SignalSell:
		return actual < predicted
	case model.SignalHold:
		if math.Abs(predicted) < minPredicted {
			return false
		}
		return math.Abs(actual-predicted)/math.Abs(predicted) < HoldTolerance
	default:
		return false
	}
}

// Evaluate aggregates correctness over records that have an actual price.
// With nothing to evaluate it returns a summary with NoData set.
func Evaluate(records []model.PredictionRecord) model.AccuracySummary {
	var s model.AccuracySummary
	for _, rec := range records {
		if rec.ActualPrice == nil {
			continue
		}
		s.TotalEvaluated++
		if IsCorrect(rec) {
			s.Correct++
		}
	}
	if s.TotalEvaluated == 0 {
		s.NoData = true
		return s
	}
	pct := decimal.NewFromInt(int64(s.Correct)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(s.TotalEvaluated))).
		Round(2)
	s.AccuracyPercent = pct.InexactFloat64()
	return s
}

// BySignal splits an evaluation per signal type.
func BySignal(records []model.PredictionRecord) map[model.Signal]model.AccuracySummary {
	groups := make(map[model.Signal][]model.PredictionRecord)
	for _, rec := range records {
		groups[rec.Signal] = append(groups[rec.Signal], rec)
	}
	out := make(map[model.Signal]model.AccuracySummary, len(groups))
	for sig, recs := range groups {
		out[sig] = Evaluate(recs)
	}
	return out
}
