package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"SignalSentinel/internal/app"
	"SignalSentinel/internal/config"
	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/notifier"
	"SignalSentinel/internal/scheduler"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(err, "load config")
	}
	if err := cfg.Validate(); err != nil {
		fatal(err, "config validation")
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fatal(err, "init logger")
	}
	log.Info().Str("config", cfgPath).Msg("SignalSentinel starting")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("SignalSentinel exited with error")
		os.Exit(1)
	}
	log.Info().Msg("SignalSentinel stopped")
}

// run returns only after every backend opened by app.Build is closed.
func run(cfg *config.Config, log zerolog.Logger) error {
	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg = prometheus.DefaultRegisterer
	}
	a, err := app.Build(cfg, reg, log)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer a.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.DataSource.Proxy, log)

	sched := scheduler.NewScheduler(ctx, a.Service, tn, cfg.Schedule.PredictionInterval, log)
	if err := sched.RegisterAll(cfg.Schedule.ReconcileCron, cfg.Schedule.RetrainCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	if cfg.Telegram.ChatID != "" {
		chatID, err := strconv.ParseInt(cfg.Telegram.ChatID, 10, 64)
		if err != nil {
			return fmt.Errorf("parse telegram.chat_id: %w", err)
		}
		if err := sched.Registry.Subscribe(chatID); err != nil {
			return fmt.Errorf("subscribe configured chat: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics.Addr, log)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	// Optional: train and run a cycle immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, training and running a cycle now")
		go func() {
			if _, err := a.Service.TrainAll(ctx); err != nil {
				log.Warn().Err(err).Msg("startup training finished with failures")
			}
			res := a.Service.RunCycle(ctx)
			log.Info().Int("signals", len(res.Succeeded())).Int("failed", len(res.Failed())).Msg("startup cycle done")
		}()
	}

	log.Info().Strs("instruments", a.Service.Instruments()).Msg("SignalSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	return nil
}

func serveMetrics(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics server listening")
	return srv
}

// fatal reports errors raised before the configured logger exists.
func fatal(err error, msg string) {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	l.Fatal().Err(err).Msg(msg)
}
