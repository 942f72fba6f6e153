package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/strategy"
)

// DefaultInstruments are traded when the config lists none.
var DefaultInstruments = []string{"XAU_USD", "EUR_USD", "GBP_USD", "USD_JPY", "AUD_USD"}

// Config holds all application configuration.
type Config struct {
	Log      logger.Config `yaml:"log"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		// ChatID, when set, also receives every scheduled cycle.
		ChatID string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Type  string `yaml:"type" default:"oanda" validate:"oneof=oanda yahoo clickhouse mock"`
		Proxy string `yaml:"proxy"`
	} `yaml:"data_source"`
	Oanda struct {
		BaseURL     string  `yaml:"base_url" default:"https://api-fxpractice.oanda.com"`
		Token       string  `yaml:"token"`
		Granularity string  `yaml:"granularity" default:"M5"`
		RateLimit   float64 `yaml:"rate_limit" default:"10" validate:"gte=0"`
	} `yaml:"oanda"`
	Yahoo struct {
		Interval string `yaml:"interval" default:"5m"`
	} `yaml:"yahoo"`
	ClickHouse struct {
		DSN   string `yaml:"dsn"`
		Table string `yaml:"table" default:"candles_5m"`
	} `yaml:"clickhouse"`
	Instruments []Instrument `yaml:"instruments" validate:"dive"`
	Pipeline    struct {
		Lookback         int           `yaml:"lookback" default:"48" validate:"gt=0"`
		Horizon          int           `yaml:"horizon" default:"1" validate:"gte=0"`
		FetchBars        int           `yaml:"fetch_bars" default:"200" validate:"gt=0"`
		TrainBars        int           `yaml:"train_bars" default:"5000" validate:"gt=0"`
		CycleTimeout     time.Duration `yaml:"cycle_timeout" default:"30s" validate:"gt=0"`
		ReconcileTimeout time.Duration `yaml:"reconcile_timeout" default:"20s" validate:"gt=0"`
		ReconcileMinAge  time.Duration `yaml:"reconcile_min_age" default:"5m" validate:"gte=0"`
		ReconcileMaxAge  time.Duration `yaml:"reconcile_max_age" default:"2h" validate:"gt=0"`
		HistoryLimit     int           `yaml:"history_limit" default:"50" validate:"gt=0"`
		AccuracyWindow   int           `yaml:"accuracy_window" validate:"gte=0"`
	} `yaml:"pipeline"`
	Forecaster struct {
		Type      string  `yaml:"type" default:"linear" validate:"oneof=linear persistence sma"`
		ModelDir  string  `yaml:"model_dir" default:"data/models"`
		SMAPeriod int     `yaml:"sma_period" default:"12" validate:"gt=0"`
		Ridge     float64 `yaml:"ridge" default:"0.0001" validate:"gte=0"`
	} `yaml:"forecaster"`
	Scaler struct {
		Store string `yaml:"store" default:"file" validate:"oneof=file redis"`
		Dir   string `yaml:"dir" default:"data/scalers"`
	} `yaml:"scaler"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"sentinel"`
	} `yaml:"redis"`
	Database struct {
		Driver      string `yaml:"driver" default:"sqlite" validate:"oneof=sqlite postgres memory"`
		SQLitePath  string `yaml:"sqlite_path" default:"data/signal_sentinel.db"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic" default:"signals"`
	} `yaml:"kafka"`
	Schedule struct {
		PredictionInterval string `yaml:"prediction_interval" default:"@every 15m"`
		ReconcileCron      string `yaml:"reconcile_cron" default:"0 */5 * * * *"`
		RetrainCron        string `yaml:"retrain_cron"`
	} `yaml:"schedule"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" default:":9100"`
	} `yaml:"metrics"`
}

// Instrument names a traded pair and optionally overrides its thresholds.
type Instrument struct {
	Name       string             `yaml:"name" validate:"required"`
	Thresholds *ThresholdOverride `yaml:"thresholds"`
}

// ThresholdOverride replaces only the thresholds it sets; the other keeps
// its default.
type ThresholdOverride struct {
	Buy  *float64 `yaml:"buy_threshold"`
	Sell *float64 `yaml:"sell_threshold"`
}

// Resolve overlays the set fields on base.
func (o *ThresholdOverride) Resolve(base strategy.Thresholds) strategy.Thresholds {
	if o == nil {
		return base
	}
	if o.Buy != nil {
		base.Buy = *o.Buy
	}
	if o.Sell != nil {
		base.Sell = *o.Sell
	}
	return base
}

// Load reads config from a YAML file, then applies environment variable
// overrides and finally fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.DataSource.Type = v
	}
	if v := os.Getenv("OANDA_API_KEY"); v != "" {
		cfg.Oanda.Token = v
	}
	if v := os.Getenv("OANDA_BASE_URL"); v != "" {
		cfg.Oanda.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.DataSource.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("PG_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
		if cfg.Database.Driver == "" {
			cfg.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.ClickHouse.DSN = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}

	// Defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(cfg.Instruments) == 0 {
		for _, name := range DefaultInstruments {
			cfg.Instruments = append(cfg.Instruments, Instrument{Name: name})
		}
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks everything the bot needs.
func (c *Config) Validate() error {
	if err := c.ValidatePipeline(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID != "" {
		if _, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64); err != nil {
			return fmt.Errorf("telegram.chat_id must be numeric: %w", err)
		}
	}
	return nil
}

// ValidatePipeline checks field constraints and cross-field rules without
// requiring Telegram settings, so offline tools can share the config.
func (c *Config) ValidatePipeline() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%s: failed %q (value %v)", e.Namespace(), e.Tag(), e.Value())
		}
		return err
	}

	switch c.DataSource.Type {
	case "oanda":
		if c.Oanda.Token == "" {
			return fmt.Errorf("oanda.token is required for the oanda data source")
		}
	case "clickhouse":
		if c.ClickHouse.DSN == "" {
			return fmt.Errorf("clickhouse.dsn is required for the clickhouse data source")
		}
	}
	if c.Database.Driver == "postgres" && c.Database.PostgresDSN == "" {
		return fmt.Errorf("database.postgres_dsn is required for the postgres driver")
	}
	if c.Pipeline.ReconcileMinAge >= c.Pipeline.ReconcileMaxAge {
		return fmt.Errorf("pipeline.reconcile_min_age must be below reconcile_max_age")
	}
	if c.Pipeline.FetchBars < c.Pipeline.Lookback {
		return fmt.Errorf("pipeline.fetch_bars (%d) must cover lookback (%d)", c.Pipeline.FetchBars, c.Pipeline.Lookback)
	}
	if c.Pipeline.TrainBars <= c.Pipeline.Lookback+c.Pipeline.Horizon {
		return fmt.Errorf("pipeline.train_bars (%d) must exceed lookback+horizon", c.Pipeline.TrainBars)
	}

	seen := make(map[string]bool, len(c.Instruments))
	for _, inst := range c.Instruments {
		if !model.ValidInstrument(inst.Name) {
			return fmt.Errorf("instrument %q: only letters, digits, '_' and '-' are allowed", inst.Name)
		}
		if seen[inst.Name] {
			return fmt.Errorf("instrument %s listed twice", inst.Name)
		}
		seen[inst.Name] = true
		if inst.Thresholds != nil {
			if err := inst.Thresholds.Resolve(strategy.DefaultThresholds).Validate(); err != nil {
				return fmt.Errorf("instrument %s: %w", inst.Name, err)
			}
		}
	}
	return nil
}

// InstrumentNames lists the configured instruments in order.
func (c *Config) InstrumentNames() []string {
	out := make([]string, len(c.Instruments))
	for i, inst := range c.Instruments {
		out[i] = inst.Name
	}
	return out
}

// ThresholdSet builds the per-instrument decision thresholds.
func (c *Config) ThresholdSet() *strategy.ThresholdSet {
	ts := strategy.NewThresholdSet()
	for _, inst := range c.Instruments {
		if inst.Thresholds != nil {
			ts.Set(inst.Name, inst.Thresholds.Resolve(strategy.DefaultThresholds))
		}
	}
	return ts
}
