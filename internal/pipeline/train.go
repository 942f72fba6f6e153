package pipeline

import (
	"context"
	"errors"
	"fmt"

	"SignalSentinel/internal/forecast"
	"SignalSentinel/internal/scaler"
	"SignalSentinel/internal/window"
)

// TrainReport describes one training run.
type TrainReport struct {
	Instrument string
	Bars       int
	Samples    int
	Model      string
}

// Train fits and saves the scaler state of instrument from TrainBars bars
// and, when a ModelSaver is configured, trains and saves a linear model on
// the same normalized series. Inference only ever loads what this saves.
func (s *Service) Train(ctx context.Context, instrument string) (TrainReport, error) {
	rep := TrainReport{Instrument: instrument}

	unlock, err := s.locks.lock(ctx, instrument)
	if err != nil {
		return rep, fmt.Errorf("wait for %s: %w", instrument, err)
	}
	defer unlock()

	series, err := s.source.Collect(ctx, instrument, s.cfg.TrainBars)
	if err != nil {
		return rep, err
	}
	rep.Bars = len(series.Bars)

	st, err := scaler.Fit(instrument, series.Bars)
	if err != nil {
		return rep, err
	}

	var model *forecast.Linear
	if s.saver != nil {
		pairs, err := window.BuildWindows(st.Transform(series.Bars), s.cfg.Lookback, s.cfg.Horizon)
		if err != nil {
			return rep, fmt.Errorf("train %s: %w", instrument, err)
		}
		model, err = forecast.TrainLinear(pairs, s.cfg.Lookback, s.cfg.Ridge)
		if err != nil {
			return rep, fmt.Errorf("train %s: %w", instrument, err)
		}
		model.Instrument = instrument
		model.Horizon = s.cfg.Horizon
		rep.Samples = model.Samples
		rep.Model = model.Name()
	}

	if model == nil {
		if err := s.scalers.Save(ctx, st); err != nil {
			return rep, storageErr("save scaler", err)
		}
	} else if err := s.commitTrained(ctx, st, model); err != nil {
		return rep, err
	}

	s.log.Info().
		Str("instrument", instrument).
		Int("bars", rep.Bars).
		Int("samples", rep.Samples).
		Msg("instrument trained")
	return rep, nil
}

// commitTrained stages the model, saves the scaler and only then commits the
// model. If the commit fails the previous scaler, if any, is restored.
func (s *Service) commitTrained(ctx context.Context, st *scaler.State, m *forecast.Linear) error {
	staged, err := s.saver.Stage(ctx, m)
	if err != nil {
		return storageErr("stage model", err)
	}
	prev, err := s.scalers.Load(ctx, st.Instrument)
	if err != nil {
		prev = nil
	}
	if err := s.scalers.Save(ctx, st); err != nil {
		staged.Discard()
		return storageErr("save scaler", err)
	}
	if err := staged.Commit(); err != nil {
		if prev != nil {
			if rerr := s.scalers.Save(ctx, prev); rerr != nil {
				s.log.Error().Err(rerr).Str("instrument", st.Instrument).Msg("restore previous scaler")
			}
		}
		return storageErr("save model", err)
	}
	return nil
}

// TrainAll trains every instrument in turn and joins the failures.
func (s *Service) TrainAll(ctx context.Context) ([]TrainReport, error) {
	var (
		reports []TrainReport
		errs    []error
	)
	for _, inst := range s.cfg.Instruments {
		rep, err := s.Train(ctx, inst)
		if err != nil {
			s.metrics.Failure(inst, "train", string(Kind(err)))
			errs = append(errs, fmt.Errorf("%s: %w", inst, err))
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}
