// Package ledger stores prediction records. Records are inserted with no
// actual price and later patched once an observed price is available; they
// are never deleted.
package ledger

import (
	"context"
	"errors"
	"time"

	"SignalSentinel/internal/model"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("prediction record not found")

// Ledger persists prediction records. Every write is a single-row atomic
// statement and implementations are safe for concurrent use.
type Ledger interface {
	Insert(ctx context.Context, instrument string, signal model.Signal, predictedPrice float64) (int64, error)
	PatchActualPrice(ctx context.Context, id int64, actual float64) (*model.PredictionRecord, error)
	Get(ctx context.Context, id int64) (*model.PredictionRecord, error)
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.PredictionRecord, error)
	// ListPending returns records of instrument without an actual price created at or after since.
	ListPending(ctx context.Context, instrument string, since time.Time) ([]model.PredictionRecord, error)
	// ListEvaluated returns records with an actual price, newest first. limit <= 0 means all.
	ListEvaluated(ctx context.Context, limit int) ([]model.PredictionRecord, error)
	Close() error
}
