package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"SignalSentinel/internal/model"
	"SignalSentinel/internal/strategy"
	"SignalSentinel/internal/window"
)

// InstrumentResult is the outcome of one instrument in a cycle. Exactly one
// of Err or RecordID is set.
type InstrumentResult struct {
	Instrument     string
	RecordID       int64
	Signal         model.Signal
	PredictedPrice float64
	LastClose      float64
	Forecaster     string
	Err            error
	Kind           ErrorKind
}

func (r InstrumentResult) OK() bool { return r.Err == nil }

// CycleResult collects per-instrument outcomes in configured order.
type CycleResult struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Results   []InstrumentResult
}

func (c CycleResult) Succeeded() []InstrumentResult {
	return c.filter(true)
}

func (c CycleResult) Failed() []InstrumentResult {
	return c.filter(false)
}

func (c CycleResult) filter(ok bool) []InstrumentResult {
	out := make([]InstrumentResult, 0, len(c.Results))
	for _, r := range c.Results {
		if r.OK() == ok {
			out = append(out, r)
		}
	}
	return out
}

// RunCycle predicts every configured instrument concurrently. A failing
// instrument never affects the others; its failure is reported in the result.
func (s *Service) RunCycle(ctx context.Context) CycleResult {
	start := s.now()
	res := CycleResult{
		ID:        uuid.NewString(),
		StartedAt: start.UTC(),
		Results:   make([]InstrumentResult, len(s.cfg.Instruments)),
	}
	log := s.log.With().Str("cycle_id", res.ID).Logger()
	log.Info().Int("instruments", len(s.cfg.Instruments)).Msg("cycle started")

	var wg sync.WaitGroup
	for i, inst := range s.cfg.Instruments {
		wg.Add(1)
		go func(i int, inst string) {
			defer wg.Done()
			r := s.runInstrument(ctx, inst)
			res.Results[i] = r
			if r.Err != nil {
				s.metrics.Failure(inst, "cycle", string(r.Kind))
				log.Warn().Err(r.Err).Str("instrument", inst).Str("kind", string(r.Kind)).Msg("instrument failed")
				return
			}
			s.metrics.SignalEmitted(inst, r.Signal)
			log.Info().
				Str("instrument", inst).
				Str("signal", string(r.Signal)).
				Float64("predicted", r.PredictedPrice).
				Float64("last_close", r.LastClose).
				Int64("record_id", r.RecordID).
				Msg("signal recorded")
		}(i, inst)
	}
	wg.Wait()

	res.Duration = s.now().Sub(start)
	s.metrics.ObserveCycle(res.Duration)
	log.Info().
		Int("ok", len(res.Succeeded())).
		Int("failed", len(res.Failed())).
		Dur("took", res.Duration).
		Msg("cycle finished")
	return res
}

// Predict runs the cycle for a single instrument.
func (s *Service) Predict(ctx context.Context, instrument string) InstrumentResult {
	return s.runInstrument(ctx, instrument)
}

func (s *Service) runInstrument(ctx context.Context, instrument string) InstrumentResult {
	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}

	r, err := s.predict(ctx, instrument)
	if err != nil {
		return InstrumentResult{Instrument: instrument, Err: err, Kind: Kind(err)}
	}
	// The instrument lock is released by now; a slow broker must not hold
	// up reconciliation.
	s.publish(ctx, r)
	return r
}

func (s *Service) predict(ctx context.Context, instrument string) (InstrumentResult, error) {
	r := InstrumentResult{Instrument: instrument}

	unlock, err := s.locks.lock(ctx, instrument)
	if err != nil {
		return r, fmt.Errorf("wait for %s: %w", instrument, err)
	}
	defer unlock()

	st, err := s.scalers.Load(ctx, instrument)
	if err != nil {
		return r, fmt.Errorf("load scaler: %w", err)
	}
	f, err := s.models.Forecaster(ctx, instrument)
	if err != nil {
		return r, fmt.Errorf("load forecaster: %w", err)
	}
	r.Forecaster = f.Name()

	series, err := s.source.Collect(ctx, instrument, s.cfg.FetchBars)
	if err != nil {
		return r, err
	}
	r.LastClose = series.LastClose()

	w, err := window.BuildLatestWindow(st.Transform(series.Bars), s.cfg.Lookback)
	if err != nil {
		return r, fmt.Errorf("%s: %w", instrument, err)
	}
	out, err := f.Infer(w)
	if err != nil {
		return r, fmt.Errorf("infer %s with %s: %w", instrument, f.Name(), err)
	}
	r.PredictedPrice = st.Inverse(out.PredictedCloseNormalized, model.ColClose)

	r.Signal, err = strategy.Decide(r.LastClose, r.PredictedPrice, s.thresholds.For(instrument))
	if err != nil {
		return r, fmt.Errorf("decide %s: %w", instrument, err)
	}

	// An abandoned instrument must not leave a record behind.
	if err := ctx.Err(); err != nil {
		return r, err
	}
	r.RecordID, err = s.ledger.Insert(ctx, instrument, r.Signal, r.PredictedPrice)
	if err != nil {
		return r, storageErr("insert prediction", err)
	}
	return r, nil
}

// publish is best effort; a failed publication never fails the cycle.
func (s *Service) publish(ctx context.Context, r InstrumentResult) {
	rec, err := s.ledger.Get(ctx, r.RecordID)
	if err != nil {
		s.log.Warn().Err(err).Int64("record_id", r.RecordID).Msg("reload record for publish")
		s.metrics.Published(false)
		return
	}
	if err := s.publisher.Publish(ctx, *rec); err != nil {
		s.log.Warn().Err(err).Str("instrument", r.Instrument).Msg("publish signal")
		s.metrics.Published(false)
		return
	}
	s.metrics.Published(true)
}
