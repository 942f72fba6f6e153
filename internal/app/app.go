// Package app builds the pipeline and its backends from a Config. Both
// binaries share it.
package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/config"
	"SignalSentinel/internal/forecast"
	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/pipeline"
	"SignalSentinel/internal/publisher"
	"SignalSentinel/internal/scaler"
)

var mockPrices = map[string]float64{
	"XAU_USD": 2300,
	"EUR_USD": 1.08,
	"GBP_USD": 1.25,
	"USD_JPY": 151,
	"AUD_USD": 0.66,
}

// App owns the built Service and every backend that needs closing.
type App struct {
	Service   *pipeline.Service
	Collector *collector.Collector
	Ledger    ledger.Ledger
	Metrics   *metrics.Recorder

	closers []io.Closer
	log     zerolog.Logger
}

// Build wires all components. reg may be nil to skip metrics.
func Build(cfg *config.Config, reg prometheus.Registerer, log zerolog.Logger) (*App, error) {
	a := &App{log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	fetcher, err := a.newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")
	a.Collector = collector.NewCollector(fetcher, log)

	scalers, err := a.newScalerStore(cfg)
	if err != nil {
		return nil, err
	}

	var (
		models forecast.Provider
		saver  pipeline.ModelSaver
	)
	switch cfg.Forecaster.Type {
	case "persistence":
		models = forecast.Static{F: forecast.Persistence{}}
	case "sma":
		models = forecast.Static{F: forecast.MovingAverage{Period: cfg.Forecaster.SMAPeriod}}
	default:
		ms, err := forecast.NewModelStore(cfg.Forecaster.ModelDir)
		if err != nil {
			return nil, fmt.Errorf("init model store: %w", err)
		}
		models, saver = ms, ms
	}

	a.Ledger, err = a.newLedger(cfg)
	if err != nil {
		return nil, err
	}

	var pub publisher.Publisher = publisher.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		a.closers = append(a.closers, kp)
		pub = kp
	}

	deps := pipeline.Deps{
		Source:     a.Collector,
		Scalers:    scalers,
		Models:     models,
		ModelSaver: saver,
		Thresholds: cfg.ThresholdSet(),
		Ledger:     a.Ledger,
		Publisher:  pub,
		Logger:     log,
	}
	if reg != nil {
		a.Metrics = metrics.New(reg)
		deps.Metrics = a.Metrics
	}

	a.Service, err = pipeline.New(PipelineConfig(cfg), deps)
	if err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

// PipelineConfig maps the pipeline section onto pipeline.Config.
func PipelineConfig(cfg *config.Config) pipeline.Config {
	p := cfg.Pipeline
	return pipeline.Config{
		Instruments:      cfg.InstrumentNames(),
		Lookback:         p.Lookback,
		Horizon:          p.Horizon,
		FetchBars:        p.FetchBars,
		TrainBars:        p.TrainBars,
		CycleTimeout:     p.CycleTimeout,
		ReconcileTimeout: p.ReconcileTimeout,
		ReconcileMinAge:  p.ReconcileMinAge,
		ReconcileMaxAge:  p.ReconcileMaxAge,
		HistoryLimit:     p.HistoryLimit,
		AccuracyWindow:   p.AccuracyWindow,
		Ridge:            cfg.Forecaster.Ridge,
	}
}

func (a *App) newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.DataSource.Type {
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Yahoo.Interval, cfg.DataSource.Proxy), nil
	case "clickhouse":
		f, err := collector.NewClickHouseFetcher(cfg.ClickHouse.DSN, cfg.ClickHouse.Table)
		if err != nil {
			return nil, fmt.Errorf("init clickhouse fetcher: %w", err)
		}
		a.closers = append(a.closers, f)
		return f, nil
	case "mock":
		return &collector.MockFetcher{
			BasePrice: mockPrices,
			End:       time.Now().UTC().Truncate(5 * time.Minute),
		}, nil
	default:
		return collector.NewOandaFetcher(cfg.Oanda.BaseURL, cfg.Oanda.Token, cfg.Oanda.Granularity,
			cfg.DataSource.Proxy, cfg.Oanda.RateLimit), nil
	}
}

func (a *App) newScalerStore(cfg *config.Config) (scaler.Store, error) {
	if cfg.Scaler.Store == "redis" {
		client, err := scaler.DialRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("init redis scaler store: %w", err)
		}
		rs := scaler.NewRedisStore(client, cfg.Redis.Prefix)
		a.closers = append(a.closers, rs)
		return rs, nil
	}
	fs, err := scaler.NewFileStore(cfg.Scaler.Dir)
	if err != nil {
		return nil, fmt.Errorf("init scaler store: %w", err)
	}
	return fs, nil
}

// newLedger opens the configured database. A durable driver that fails to
// open is an error; memory is only used when chosen explicitly.
func (a *App) newLedger(cfg *config.Config) (ledger.Ledger, error) {
	var (
		l   ledger.Ledger
		err error
	)
	switch cfg.Database.Driver {
	case "memory":
		a.log.Warn().Msg("memory ledger selected, records are lost on restart")
		return ledger.NewMemoryLedger(), nil
	case "postgres":
		l, err = ledger.NewPostgresLedger(cfg.Database.PostgresDSN, a.log)
	default:
		l, err = ledger.NewSQLiteLedger(cfg.Database.SQLitePath, a.log)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s ledger: %w", cfg.Database.Driver, err)
	}
	a.closers = append(a.closers, l)
	return l, nil
}

// Close releases backends in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
