package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"SignalSentinel/internal/model"
)

// MemoryLedger keeps records in process memory. It is used when no
// database is configured and in tests; nothing survives a restart.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []model.PredictionRecord
	nextID  int64
	Now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{nextID: 1, Now: time.Now}
}

func (m *MemoryLedger) Insert(_ context.Context, instrument string, signal model.Signal, predictedPrice float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.records = append(m.records, model.PredictionRecord{
		ID:             id,
		Instrument:     instrument,
		Signal:         signal,
		PredictedPrice: predictedPrice,
		CreatedAt:      m.Now().UTC(),
	})
	return id, nil
}

func (m *MemoryLedger) PatchActualPrice(_ context.Context, id int64, actual float64) (*model.PredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			v := actual
			m.records[i].ActualPrice = &v
			out := cloneRecord(m.records[i])
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

func (m *MemoryLedger) Get(_ context.Context, id int64) (*model.PredictionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			out := cloneRecord(r)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

func (m *MemoryLedger) ListRecent(_ context.Context, limit int) ([]model.PredictionRecord, error) {
	return m.list(limit, func(model.PredictionRecord) bool { return true }), nil
}

func (m *MemoryLedger) ListPending(_ context.Context, instrument string, since time.Time) ([]model.PredictionRecord, error) {
	return m.list(0, func(r model.PredictionRecord) bool {
		return r.Instrument == instrument && r.ActualPrice == nil && !r.CreatedAt.Before(since)
	}), nil
}

func (m *MemoryLedger) ListEvaluated(_ context.Context, limit int) ([]model.PredictionRecord, error) {
	return m.list(limit, func(r model.PredictionRecord) bool { return r.ActualPrice != nil }), nil
}

func (m *MemoryLedger) Close() error { return nil }

// list returns matching records newest first; limit <= 0 means all.
func (m *MemoryLedger) list(limit int, keep func(model.PredictionRecord) bool) []model.PredictionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.PredictionRecord, 0)
	for _, r := range m.records {
		if keep(r) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func cloneRecord(r model.PredictionRecord) model.PredictionRecord {
	if r.ActualPrice != nil {
		v := *r.ActualPrice
		r.ActualPrice = &v
	}
	return r
}
