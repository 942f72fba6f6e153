// Package pipeline runs the forecast-to-signal cycle for every configured
// instrument, reconciles pending predictions and trains per-instrument state.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"SignalSentinel/internal/evaluator"
	"SignalSentinel/internal/forecast"
	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/publisher"
	"SignalSentinel/internal/scaler"
	"SignalSentinel/internal/strategy"
	"SignalSentinel/internal/window"
)

// Source supplies raw bars. *collector.Collector satisfies it.
type Source interface {
	Collect(ctx context.Context, instrument string, count int) (model.PriceSeries, error)
	LatestClose(ctx context.Context, instrument string) (float64, error)
}

// ModelSaver persists trained linear models in two steps so a model only
// becomes visible next to the scaler it was trained with.
// *forecast.ModelStore satisfies it.
type ModelSaver interface {
	Stage(ctx context.Context, m *forecast.Linear) (forecast.Staged, error)
}

// Metrics receives pipeline observations. *metrics.Recorder satisfies it.
type Metrics interface {
	ObserveCycle(d time.Duration)
	SignalEmitted(instrument string, signal model.Signal)
	Failure(instrument, op, kind string)
	RecordsPatched(instrument string, n int)
	Published(ok bool)
	SetAccuracy(s model.AccuracySummary)
}

type Config struct {
	Instruments      []string
	Lookback         int
	Horizon          int
	FetchBars        int
	TrainBars        int
	CycleTimeout     time.Duration
	ReconcileTimeout time.Duration
	ReconcileMinAge  time.Duration
	ReconcileMaxAge  time.Duration
	HistoryLimit     int
	// AccuracyWindow bounds how many evaluated records feed Accuracy; 0 means all.
	AccuracyWindow int
	Ridge          float64
}

// DefaultConfig mirrors the config package defaults.
func DefaultConfig(instruments ...string) Config {
	return Config{
		Instruments:      instruments,
		Lookback:         window.DefaultLookback,
		Horizon:          window.DefaultHorizon,
		FetchBars:        200,
		TrainBars:        5000,
		CycleTimeout:     30 * time.Second,
		ReconcileTimeout: 20 * time.Second,
		ReconcileMinAge:  5 * time.Minute,
		ReconcileMaxAge:  2 * time.Hour,
		HistoryLimit:     50,
		Ridge:            1e-4,
	}
}

// Deps are the collaborators of a Service. Publisher, Metrics and
// ModelSaver are optional.
type Deps struct {
	Source     Source
	Scalers    scaler.Store
	Models     forecast.Provider
	ModelSaver ModelSaver
	Thresholds *strategy.ThresholdSet
	Ledger     ledger.Ledger
	Publisher  publisher.Publisher
	Metrics    Metrics
	Logger     zerolog.Logger
}

// Service is safe for concurrent use. Work on one instrument is serialized;
// different instruments proceed in parallel.
type Service struct {
	cfg        Config
	source     Source
	scalers    scaler.Store
	models     forecast.Provider
	saver      ModelSaver
	thresholds *strategy.ThresholdSet
	ledger     ledger.Ledger
	publisher  publisher.Publisher
	metrics    Metrics
	log        zerolog.Logger
	locks      *keyedLock
	now        func() time.Time
}

func New(cfg Config, deps Deps) (*Service, error) {
	switch {
	case len(cfg.Instruments) == 0:
		return nil, errors.New("pipeline: no instruments configured")
	case cfg.Lookback <= 0 || cfg.Horizon < 0:
		return nil, errors.New("pipeline: invalid lookback or horizon")
	case cfg.FetchBars < cfg.Lookback:
		return nil, errors.New("pipeline: fetch bars must cover the lookback")
	case deps.Source == nil || deps.Scalers == nil || deps.Models == nil || deps.Ledger == nil:
		return nil, errors.New("pipeline: source, scalers, models and ledger are required")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if deps.Thresholds == nil {
		deps.Thresholds = strategy.NewThresholdSet()
	}
	if deps.Publisher == nil {
		deps.Publisher = publisher.Noop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &Service{
		cfg:        cfg,
		source:     deps.Source,
		scalers:    deps.Scalers,
		models:     deps.Models,
		saver:      deps.ModelSaver,
		thresholds: deps.Thresholds,
		ledger:     deps.Ledger,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		log:        deps.Logger.With().Str("component", "pipeline").Logger(),
		locks:      newKeyedLock(),
		now:        time.Now,
	}, nil
}

// Instruments returns the configured instruments in order.
func (s *Service) Instruments() []string {
	return append([]string(nil), s.cfg.Instruments...)
}

// History returns up to limit records, newest first. limit <= 0 uses the
// configured default.
func (s *Service) History(ctx context.Context, limit int) ([]model.PredictionRecord, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	recs, err := s.ledger.ListRecent(ctx, limit)
	if err != nil {
		return nil, storageErr("history", err)
	}
	return recs, nil
}

// Accuracy evaluates the most recent AccuracyWindow evaluated records.
func (s *Service) Accuracy(ctx context.Context) (model.AccuracySummary, error) {
	sum, _, err := s.AccuracyBreakdown(ctx)
	return sum, err
}

// AccuracyBreakdown is Accuracy plus a per-signal split.
func (s *Service) AccuracyBreakdown(ctx context.Context) (model.AccuracySummary, map[model.Signal]model.AccuracySummary, error) {
	recs, err := s.ledger.ListEvaluated(ctx, s.cfg.AccuracyWindow)
	if err != nil {
		return model.AccuracySummary{}, nil, storageErr("accuracy", err)
	}
	sum := evaluator.Evaluate(recs)
	s.metrics.SetAccuracy(sum)
	return sum, evaluator.BySignal(recs), nil
}

type nopMetrics struct{}

func (nopMetrics) ObserveCycle(time.Duration) {}
func (nopMetrics) SignalEmitted(string, model.Signal) {}
func (nopMetrics) Failure(string, string, string) {}
func (nopMetrics) RecordsPatched(string, int) {}
func (nopMetrics) Published(bool) {}
func (nopMetrics) SetAccuracy(model.AccuracySummary) {}
