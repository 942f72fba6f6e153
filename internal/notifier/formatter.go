package notifier

import (
	"fmt"
	"html"
	"strings"

	"SignalSentinel/internal/model"
	"SignalSentinel/internal/pipeline"
)

var signalIcon = map[model.Signal]string{
	model.SignalBuy:  "📈",
	model.SignalSell: "📉",
	model.SignalHold: "⏸",
}

// displayPair turns EUR_USD into EUR/USD.
func displayPair(instrument string) string {
	return strings.ReplaceAll(instrument, "_", "/")
}

// FormatCycle renders the signals of one cycle, failures last.
func FormatCycle(res pipeline.CycleResult) string {
	var b strings.Builder
	b.WriteString("📊🤖 <b>Latest Forex Predictions</b>\n\n")

	ok := res.Succeeded()
	for _, r := range ok {
		b.WriteString(fmt.Sprintf("• %s %s: <b>%s</b> @ %.3f (last %.3f)\n",
			signalIcon[r.Signal], displayPair(r.Instrument), strings.ToUpper(string(r.Signal)),
			r.PredictedPrice, r.LastClose))
	}
	if failed := res.Failed(); len(failed) > 0 {
		if len(ok) > 0 {
			b.WriteString("\n")
		}
		for _, r := range failed {
			b.WriteString(fmt.Sprintf("• ⚠️ %s: unavailable (%s)\n", displayPair(r.Instrument), r.Kind))
		}
	}
	return b.String()
}

// FormatHistory renders records newest first.
func FormatHistory(recs []model.PredictionRecord) string {
	if len(recs) == 0 {
		return "No predictions recorded yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>Last %d predictions</b>\n\n", len(recs)))
	for _, r := range recs {
		actual := "pending"
		if r.ActualPrice != nil {
			actual = fmt.Sprintf("%.3f", *r.ActualPrice)
		}
		b.WriteString(fmt.Sprintf("%s %s %s @ %.3f → %s\n",
			r.CreatedAt.Format("01-02 15:04"), displayPair(r.Instrument),
			strings.ToUpper(html.EscapeString(string(r.Signal))), r.PredictedPrice, actual))
	}
	return b.String()
}

// FormatAccuracy renders the overall summary and the per-signal split.
func FormatAccuracy(sum model.AccuracySummary, bySignal map[model.Signal]model.AccuracySummary) string {
	if sum.NoData {
		return "🎯 <b>Accuracy</b>\n\nNo evaluated predictions yet."
	}
	var b strings.Builder
	b.WriteString("🎯 <b>Accuracy</b>\n\n")
	b.WriteString(fmt.Sprintf("Overall: %.2f%% (%d/%d)\n", sum.AccuracyPercent, sum.Correct, sum.TotalEvaluated))
	for _, sig := range []model.Signal{model.SignalBuy, model.SignalSell, model.SignalHold} {
		s, ok := bySignal[sig]
		if !ok || s.NoData {
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s: %.2f%% (%d/%d)\n",
			signalIcon[sig], strings.ToUpper(string(sig)), s.AccuracyPercent, s.Correct, s.TotalEvaluated))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Welcome to the Forex Signal Bot 📈\n\n" +
		"/predict get the latest signals now\n" +
		"/start receive predictions every 15 minutes\n" +
		"/stop stop automatic predictions\n" +
		"/history [n] recent predictions\n" +
		"/accuracy prediction accuracy"
}
