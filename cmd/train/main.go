// Command train fits the scaler state and, for the linear forecaster, the
// model of every configured instrument. The bot only loads what this saves.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"SignalSentinel/internal/app"
	"SignalSentinel/internal/config"
	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/pipeline"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	only := flag.String("instrument", "", "train a single instrument")
	flag.Parse()
	if v := os.Getenv("CONFIG_PATH"); v != "" && !isFlagSet("config") {
		*cfgPath = v
	}

	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.ValidatePipeline(); err != nil {
		boot.Fatal().Err(err).Msg("config validation")
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		boot.Fatal().Err(err).Msg("init logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *only, log); err != nil {
		log.Error().Err(err).Msg("training failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, only string, log zerolog.Logger) error {
	a, err := app.Build(cfg, nil, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if only != "" {
		rep, err := a.Service.Train(ctx, only)
		if err != nil {
			return err
		}
		logReport(log, rep)
		return nil
	}

	reports, err := a.Service.TrainAll(ctx)
	for _, rep := range reports {
		logReport(log, rep)
	}
	if err != nil {
		log.Warn().Int("trained", len(reports)).Int("configured", len(cfg.Instruments)).Msg("some instruments failed")
	}
	return err
}

func logReport(log zerolog.Logger, rep pipeline.TrainReport) {
	log.Info().
		Str("instrument", rep.Instrument).
		Int("bars", rep.Bars).
		Int("samples", rep.Samples).
		Str("model", rep.Model).
		Msg("trained")
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
