package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SignalSentinel/internal/model"
	"SignalSentinel/internal/notifier"
	"SignalSentinel/internal/pipeline"
)

// Service is the part of *pipeline.Service the scheduler drives.
type Service interface {
	RunCycle(ctx context.Context) pipeline.CycleResult
	ReconcileAll(ctx context.Context) map[string]int
	TrainAll(ctx context.Context) ([]pipeline.TrainReport, error)
	History(ctx context.Context, limit int) ([]model.PredictionRecord, error)
	AccuracyBreakdown(ctx context.Context) (model.AccuracySummary, map[model.Signal]model.AccuracySummary, error)
}

// Sender delivers replies. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, chatID int64, r notifier.Reply, maxRetries int) error
}

// Scheduler manages all cron tasks and the per-chat prediction subscriptions.
type Scheduler struct {
	Cron     *cron.Cron
	Service  Service
	Sender   Sender
	Registry *Registry
	Ctx      context.Context
	log      zerolog.Logger
}

// NewScheduler creates a new Scheduler. interval is the cron spec of each
// subscriber's prediction job, e.g. "@every 15m".
func NewScheduler(ctx context.Context, svc Service, sender Sender, interval string, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Service: svc,
		Sender:  sender,
		Ctx:     ctx,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
	s.Registry = NewRegistry(s.Cron, interval, s.sendPrediction)
	return s
}

// RegisterAll registers the reconcile task and, when retrainCron is set, the
// retrain task.
func (s *Scheduler) RegisterAll(reconcileCron, retrainCron string) error {
	if _, err := s.Cron.AddFunc(reconcileCron, s.reconcileTask); err != nil {
		return fmt.Errorf("register reconcile task: %w", err)
	}
	if retrainCron != "" {
		if _, err := s.Cron.AddFunc(retrainCron, s.retrainTask); err != nil {
			return fmt.Errorf("register retrain task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) reconcileTask() {
	patched := s.Service.ReconcileAll(s.Ctx)
	total := 0
	for _, n := range patched {
		total += n
	}
	s.log.Debug().Int("patched", total).Msg("reconcile task done")
}

func (s *Scheduler) retrainTask() {
	s.log.Info().Msg("running retrain task")
	reports, err := s.Service.TrainAll(s.Ctx)
	if err != nil {
		s.log.Error().Err(err).Int("trained", len(reports)).Msg("retrain finished with failures")
		return
	}
	s.log.Info().Int("trained", len(reports)).Msg("retrain finished")
}

// sendPrediction runs a cycle and sends the result to chatID.
func (s *Scheduler) sendPrediction(chatID int64) {
	res := s.Service.RunCycle(s.Ctx)
	reply := notifier.Reply{Text: notifier.FormatCycle(res), StopButton: true}
	if len(res.Succeeded()) == 0 {
		reply.Text = "❌ Error occurred while getting predictions.\n\n" + reply.Text
	}
	s.trySend(chatID, reply)
}

// HandleCommand processes a user command and returns a reply. An empty
// reply means the command already produced its own messages.
func (s *Scheduler) HandleCommand(ctx context.Context, chatID int64, text string) notifier.Reply {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return notifier.Reply{Text: notifier.FormatHelp()}
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // /start@SomeBot
	}

	switch cmd {
	case "/start":
		if err := s.Registry.Subscribe(chatID); err != nil {
			s.log.Error().Err(err).Int64("chat_id", chatID).Msg("subscribe")
			return notifier.Reply{Text: "❌ Could not schedule predictions."}
		}
		return notifier.Reply{
			Text: "Welcome to the Forex Signal Bot 📈. Type /predict to get the latest signals.\n" +
				"Or wait for automatic predictions every " + s.Registry.Interval() + ".",
			StopButton: true,
		}
	case "/stop":
		if s.Registry.Unsubscribe(chatID) {
			return notifier.Reply{Text: "⏹️ Automatic predictions stopped. Use /start to resume."}
		}
		return notifier.Reply{Text: "No active prediction job found."}
	case "/predict":
		res := s.Service.RunCycle(ctx)
		return notifier.Reply{Text: notifier.FormatCycle(res), StopButton: s.Registry.IsActive(chatID)}
	case "/history":
		limit := 0
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
				limit = n
			}
		}
		recs, err := s.Service.History(ctx, limit)
		if err != nil {
			s.log.Error().Err(err).Msg("history")
			return notifier.Reply{Text: "❌ Could not load history."}
		}
		return notifier.Reply{Text: notifier.FormatHistory(recs)}
	case "/accuracy":
		s.Service.ReconcileAll(ctx)
		sum, bySignal, err := s.Service.AccuracyBreakdown(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("accuracy")
			return notifier.Reply{Text: "❌ Could not compute accuracy."}
		}
		return notifier.Reply{Text: notifier.FormatAccuracy(sum, bySignal)}
	default:
		return notifier.Reply{Text: notifier.FormatHelp()}
	}
}

func (s *Scheduler) trySend(chatID int64, r notifier.Reply) {
	if err := s.Sender.SendWithRetry(s.Ctx, chatID, r, 3); err != nil {
		s.log.Error().Err(err).Int64("chat_id", chatID).Msg("send notification")
	}
}
