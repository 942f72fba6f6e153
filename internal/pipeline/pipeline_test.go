package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/forecast"
	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/scaler"
	"SignalSentinel/internal/strategy"
	"SignalSentinel/internal/window"
)

var testEnd = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	fetcher *collector.MockFetcher
	ledger  *ledger.MemoryLedger
	scalers *scaler.MemoryStore
}

// newFixture fits scalers for the given instruments from the mock series.
func newFixture(t *testing.T, cfg Config, models forecast.Provider, fitted ...string) *fixture {
	t.Helper()
	fetcher := &collector.MockFetcher{
		BasePrice: map[string]float64{"XAU_USD": 2300, "EUR_USD": 1.08, "GBP_USD": 1.25, "USD_JPY": 151},
		End:       testEnd,
	}
	scalers := scaler.NewMemoryStore()
	for _, inst := range fitted {
		bars, _ := fetcher.FetchBars(context.Background(), inst, 500)
		st, err := scaler.Fit(inst, bars)
		if err != nil {
			t.Fatalf("fit %s: %v", inst, err)
		}
		if err := scalers.Save(context.Background(), st); err != nil {
			t.Fatal(err)
		}
	}
	l := ledger.NewMemoryLedger()
	if models == nil {
		models = forecast.Static{F: forecast.Persistence{}}
	}
	svc, err := New(cfg, Deps{
		Source:  collector.NewCollector(fetcher, zerolog.Nop()),
		Scalers: scalers,
		Models:  models,
		Ledger:  l,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{svc: svc, fetcher: fetcher, ledger: l, scalers: scalers}
}

func resultFor(t *testing.T, res CycleResult, inst string) InstrumentResult {
	t.Helper()
	for _, r := range res.Results {
		if r.Instrument == inst {
			return r
		}
	}
	t.Fatalf("no result for %s", inst)
	return InstrumentResult{}
}

func TestRunCycleIsolatesInstrumentFailures(t *testing.T) {
	cfg := DefaultConfig("EUR_USD", "XAU_USD")
	fx := newFixture(t, cfg, nil, "EUR_USD", "XAU_USD")
	fx.fetcher.Fail = map[string]error{"EUR_USD": errors.New("connection refused")}

	res := fx.svc.RunCycle(context.Background())
	if res.ID == "" {
		t.Error("cycle id not set")
	}

	eur := resultFor(t, res, "EUR_USD")
	if eur.OK() || eur.Kind != KindDataSourceUnavailable {
		t.Errorf("EUR_USD: ok=%v kind=%s, want data_source_unavailable", eur.OK(), eur.Kind)
	}
	xau := resultFor(t, res, "XAU_USD")
	if !xau.OK() {
		t.Fatalf("XAU_USD failed: %v", xau.Err)
	}
	if len(res.Succeeded()) != 1 || len(res.Failed()) != 1 {
		t.Errorf("succeeded=%d failed=%d", len(res.Succeeded()), len(res.Failed()))
	}

	recs, _ := fx.ledger.ListRecent(context.Background(), 0)
	if len(recs) != 1 || recs[0].Instrument != "XAU_USD" || recs[0].ID != xau.RecordID {
		t.Fatalf("ledger = %+v, want one XAU_USD record", recs)
	}
	if recs[0].ActualPrice != nil {
		t.Error("new record must be pending")
	}
}

func TestRunCyclePersistenceHolds(t *testing.T) {
	fx := newFixture(t, DefaultConfig("XAU_USD"), nil, "XAU_USD")
	r := resultFor(t, fx.svc.RunCycle(context.Background()), "XAU_USD")
	if !r.OK() {
		t.Fatalf("cycle failed: %v", r.Err)
	}
	if math.Abs(r.PredictedPrice-r.LastClose) > 1e-6 {
		t.Errorf("persistence predicted %v, last close %v", r.PredictedPrice, r.LastClose)
	}
	if r.Signal != model.SignalHold || r.Forecaster != "persistence" {
		t.Errorf("signal=%s forecaster=%s", r.Signal, r.Forecaster)
	}
}

type constForecaster float64

func (c constForecaster) Name() string { return "const" }
func (c constForecaster) Infer(model.FeatureWindow) (forecast.Result, error) {
	return forecast.Result{PredictedCloseNormalized: float64(c)}, nil
}

func TestRunCycleSignalsFromForecast(t *testing.T) {
	tests := []struct {
		normalized float64
		want       model.Signal
	}{
		{2.0, model.SignalBuy},
		{-1.0, model.SignalSell},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			fx := newFixture(t, DefaultConfig("XAU_USD"), forecast.Static{F: constForecaster(tt.normalized)}, "XAU_USD")
			r := resultFor(t, fx.svc.RunCycle(context.Background()), "XAU_USD")
			if !r.OK() {
				t.Fatalf("cycle failed: %v", r.Err)
			}
			if r.Signal != tt.want {
				t.Errorf("signal = %s, want %s (last %v predicted %v)", r.Signal, tt.want, r.LastClose, r.PredictedPrice)
			}
		})
	}
}

func TestRunCycleRejectsNonFiniteForecast(t *testing.T) {
	fx := newFixture(t, DefaultConfig("EUR_USD"), forecast.Static{F: constForecaster(math.NaN())}, "EUR_USD")
	r := resultFor(t, fx.svc.RunCycle(context.Background()), "EUR_USD")
	if r.Kind != KindInvalidForecast {
		t.Fatalf("kind = %s, want invalid_forecast (err %v)", r.Kind, r.Err)
	}
	if recs, _ := fx.ledger.ListRecent(context.Background(), 0); len(recs) != 0 {
		t.Errorf("invalid forecast must not be persisted, got %d records", len(recs))
	}
}

func TestRunCycleSurfacesNotFitted(t *testing.T) {
	fx := newFixture(t, DefaultConfig("GBP_USD", "EUR_USD"), nil, "EUR_USD")
	res := fx.svc.RunCycle(context.Background())

	gbp := resultFor(t, res, "GBP_USD")
	if gbp.Kind != KindNotFitted || !errors.Is(gbp.Err, scaler.ErrNotFitted) {
		t.Fatalf("GBP_USD kind=%s err=%v, want not_fitted", gbp.Kind, gbp.Err)
	}
	if fx.fetcher.Calls("GBP_USD") != 0 {
		t.Error("an unfitted instrument should not hit the data source")
	}
	if !resultFor(t, res, "EUR_USD").OK() {
		t.Error("EUR_USD should still succeed")
	}
}

func TestRunCycleInsufficientHistory(t *testing.T) {
	cfg := DefaultConfig("EUR_USD")
	fx := newFixture(t, cfg, nil, "EUR_USD")
	fx.fetcher.Bars = map[string][]model.OHLCV{
		"EUR_USD": collector.GenerateBars(1.08, cfg.Lookback-1, testEnd, 5*time.Minute),
	}
	r := resultFor(t, fx.svc.RunCycle(context.Background()), "EUR_USD")
	if r.Kind != KindInsufficientHistory {
		t.Fatalf("kind = %s, want insufficient_history (err %v)", r.Kind, r.Err)
	}
}

func TestRunCycleTimeoutLeavesNoRecord(t *testing.T) {
	cfg := DefaultConfig("USD_JPY", "EUR_USD")
	cfg.CycleTimeout = 30 * time.Millisecond
	fx := newFixture(t, cfg, nil, "USD_JPY", "EUR_USD")
	fx.fetcher.Delay = time.Second

	res := fx.svc.RunCycle(context.Background())
	for _, r := range res.Results {
		if r.Kind != KindTimeout {
			t.Errorf("%s: kind = %s, want timeout", r.Instrument, r.Kind)
		}
	}
	if res.Duration >= time.Second {
		t.Errorf("cycle took %v, timeout not honoured", res.Duration)
	}
	if recs, _ := fx.ledger.ListRecent(context.Background(), 0); len(recs) != 0 {
		t.Errorf("timed out instruments left %d records", len(recs))
	}
}

func TestInstrumentWorkIsSerialized(t *testing.T) {
	cfg := DefaultConfig("EUR_USD", "XAU_USD")
	cfg.CycleTimeout = 50 * time.Millisecond
	fx := newFixture(t, cfg, nil, "EUR_USD", "XAU_USD")

	unlock, err := fx.svc.locks.lock(context.Background(), "EUR_USD")
	if err != nil {
		t.Fatal(err)
	}
	res := fx.svc.RunCycle(context.Background())
	unlock()

	if r := resultFor(t, res, "EUR_USD"); r.Kind != KindTimeout {
		t.Errorf("EUR_USD kind = %s, want timeout while locked", r.Kind)
	}
	if r := resultFor(t, res, "XAU_USD"); !r.OK() {
		t.Errorf("XAU_USD should not wait on EUR_USD: %v", r.Err)
	}

	// Released lock lets the next cycle through.
	if r := resultFor(t, fx.svc.RunCycle(context.Background()), "EUR_USD"); !r.OK() {
		t.Errorf("EUR_USD after unlock: %v", r.Err)
	}
}

type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPublisher) Publish(ctx context.Context, _ model.PredictionRecord) error {
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingPublisher) Close() error { return nil }

func TestSlowPublishDoesNotHoldInstrumentLock(t *testing.T) {
	fx := newFixture(t, DefaultConfig("EUR_USD"), nil, "EUR_USD")
	pub := &blockingPublisher{entered: make(chan struct{}, 1), release: make(chan struct{})}
	fx.svc.publisher = pub

	done := make(chan InstrumentResult, 1)
	go func() { done <- fx.svc.Predict(context.Background(), "EUR_USD") }()

	select {
	case <-pub.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("publish never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := fx.svc.locks.lock(ctx, "EUR_USD")
	if err != nil {
		t.Fatalf("instrument lock held during publish: %v", err)
	}
	unlock()

	close(pub.release)
	if r := <-done; !r.OK() {
		t.Errorf("predict: %v", r.Err)
	}
}

func TestKeyedLockExclusion(t *testing.T) {
	k := newKeyedLock()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := k.lock(context.Background(), "AUD_USD")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
}

func TestReconcilePatchesDueRecords(t *testing.T) {
	fx := newFixture(t, DefaultConfig("EUR_USD"), nil, "EUR_USD")
	now := testEnd.Add(time.Hour)
	fx.svc.now = func() time.Time { return now }

	ctx := context.Background()
	insertAt := func(at time.Time) int64 {
		fx.ledger.Now = func() time.Time { return at }
		id, err := fx.ledger.Insert(ctx, "EUR_USD", model.SignalBuy, 1.08)
		if err != nil {
			t.Fatal(err)
		}
		return id
	}
	due := insertAt(now.Add(-10 * time.Minute))
	young := insertAt(now.Add(-time.Minute))
	stale := insertAt(now.Add(-3 * time.Hour))

	n, err := fx.svc.Reconcile(ctx, "EUR_USD")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if n != 1 {
		t.Fatalf("patched = %d, want 1", n)
	}

	bars, _ := fx.fetcher.FetchBars(ctx, "EUR_USD", 2)
	rec, _ := fx.ledger.Get(ctx, due)
	if rec.ActualPrice == nil || *rec.ActualPrice != bars[len(bars)-1].Close {
		t.Errorf("due record actual = %v, want latest close %v", rec.ActualPrice, bars[len(bars)-1].Close)
	}
	for _, id := range []int64{young, stale} {
		if rec, _ := fx.ledger.Get(ctx, id); rec.ActualPrice != nil {
			t.Errorf("record %d should stay pending", id)
		}
	}

	// A second pass finds nothing left to do.
	if n, err := fx.svc.Reconcile(ctx, "EUR_USD"); err != nil || n != 0 {
		t.Errorf("second reconcile = %d, %v", n, err)
	}
}

func TestReconcileAllSwallowsFailures(t *testing.T) {
	fx := newFixture(t, DefaultConfig("EUR_USD", "XAU_USD"), nil, "EUR_USD", "XAU_USD")
	ctx := context.Background()
	past := time.Now().Add(-30 * time.Minute)
	fx.ledger.Now = func() time.Time { return past }
	eurID, _ := fx.ledger.Insert(ctx, "EUR_USD", model.SignalSell, 1.08)
	xauID, _ := fx.ledger.Insert(ctx, "XAU_USD", model.SignalBuy, 2300)
	fx.fetcher.Fail = map[string]error{"EUR_USD": errors.New("rate limited")}

	got := fx.svc.ReconcileAll(ctx)
	if got["EUR_USD"] != 0 || got["XAU_USD"] != 1 {
		t.Fatalf("patched = %v", got)
	}
	if rec, _ := fx.ledger.Get(ctx, eurID); rec.State() != model.StatePending {
		t.Error("EUR_USD record must stay pending after a failed reconcile")
	}
	if rec, _ := fx.ledger.Get(ctx, xauID); rec.State() != model.StateEvaluated {
		t.Error("XAU_USD record should be evaluated")
	}
}

func TestReconcileTimeoutLeavesPending(t *testing.T) {
	cfg := DefaultConfig("USD_JPY")
	cfg.ReconcileTimeout = 20 * time.Millisecond
	fx := newFixture(t, cfg, nil, "USD_JPY")
	ctx := context.Background()
	past := time.Now().Add(-30 * time.Minute)
	fx.ledger.Now = func() time.Time { return past }
	id, _ := fx.ledger.Insert(ctx, "USD_JPY", model.SignalHold, 151)
	fx.fetcher.Delay = time.Second

	_, err := fx.svc.Reconcile(ctx, "USD_JPY")
	if Kind(err) != KindTimeout {
		t.Fatalf("kind = %s (err %v), want timeout", Kind(err), err)
	}
	if rec, _ := fx.ledger.Get(ctx, id); rec.ActualPrice != nil {
		t.Error("record must stay pending after timeout")
	}
}

func TestTrainThenPredictWithLinearModel(t *testing.T) {
	cfg := DefaultConfig("XAU_USD", "EUR_USD")
	cfg.TrainBars = 400
	store, err := forecast.NewModelStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fx := newFixture(t, cfg, store)
	fx.svc.saver = store

	// Before training nothing is fitted.
	if r := resultFor(t, fx.svc.RunCycle(context.Background()), "XAU_USD"); r.Kind != KindNotFitted {
		t.Fatalf("before training kind = %s", r.Kind)
	}

	reports, err := fx.svc.TrainAll(context.Background())
	if err != nil {
		t.Fatalf("TrainAll: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %d", len(reports))
	}
	wantSamples := window.Count(400, cfg.Lookback, cfg.Horizon)
	for _, rep := range reports {
		if rep.Bars != 400 || rep.Samples != wantSamples || rep.Model != "linear" {
			t.Errorf("report %+v, want 400 bars and %d samples", rep, wantSamples)
		}
	}

	res := fx.svc.RunCycle(context.Background())
	for _, r := range res.Results {
		if !r.OK() {
			t.Fatalf("%s after training: %v", r.Instrument, r.Err)
		}
		if r.Forecaster != "linear" {
			t.Errorf("%s forecaster = %s", r.Instrument, r.Forecaster)
		}
		// A sine series is well inside a 5% band of its last close.
		if math.Abs(r.PredictedPrice-r.LastClose)/r.LastClose > 0.05 {
			t.Errorf("%s predicted %v far from last close %v", r.Instrument, r.PredictedPrice, r.LastClose)
		}
	}
}

type fakeStaged struct {
	saver *fakeSaver
	m     *forecast.Linear
}

func (f fakeStaged) Commit() error {
	if f.saver.commitErr != nil {
		return f.saver.commitErr
	}
	f.saver.committed = append(f.saver.committed, f.m)
	return nil
}

func (f fakeStaged) Discard() { f.saver.discarded++ }

type fakeSaver struct {
	commitErr error
	committed []*forecast.Linear
	discarded int
}

func (f *fakeSaver) Stage(_ context.Context, m *forecast.Linear) (forecast.Staged, error) {
	return fakeStaged{saver: f, m: m}, nil
}

type failingScalerStore struct {
	*scaler.MemoryStore
}

func (failingScalerStore) Save(context.Context, *scaler.State) error {
	return errors.New("disk full")
}

func TestTrainScalerFailureDiscardsModel(t *testing.T) {
	cfg := DefaultConfig("XAU_USD")
	cfg.TrainBars = 200
	fx := newFixture(t, cfg, nil)
	saver := &fakeSaver{}
	fx.svc.saver = saver
	fx.svc.scalers = failingScalerStore{scaler.NewMemoryStore()}

	_, err := fx.svc.Train(context.Background(), "XAU_USD")
	if Kind(err) != KindStorage {
		t.Fatalf("kind = %s (err %v)", Kind(err), err)
	}
	if saver.discarded != 1 || len(saver.committed) != 0 {
		t.Errorf("discarded=%d committed=%d, want the staged model dropped", saver.discarded, len(saver.committed))
	}
}

func TestTrainModelCommitFailureRestoresScaler(t *testing.T) {
	cfg := DefaultConfig("XAU_USD")
	cfg.TrainBars = 200
	fx := newFixture(t, cfg, nil, "XAU_USD")
	before, err := fx.scalers.Load(context.Background(), "XAU_USD")
	if err != nil {
		t.Fatal(err)
	}
	fx.svc.saver = &fakeSaver{commitErr: errors.New("rename failed")}

	if _, err := fx.svc.Train(context.Background(), "XAU_USD"); Kind(err) != KindStorage {
		t.Fatalf("kind = %s (err %v)", Kind(err), err)
	}
	after, err := fx.scalers.Load(context.Background(), "XAU_USD")
	if err != nil {
		t.Fatal(err)
	}
	if after.Rows != before.Rows || after.Min != before.Min || after.Max != before.Max {
		t.Errorf("scaler changed after failed model commit: rows %d -> %d", before.Rows, after.Rows)
	}
}

func TestTrainInsufficientData(t *testing.T) {
	cfg := DefaultConfig("EUR_USD")
	fx := newFixture(t, cfg, nil)
	fx.fetcher.Bars = map[string][]model.OHLCV{"EUR_USD": collector.GenerateBars(1.08, 1, testEnd, time.Minute)}
	_, err := fx.svc.Train(context.Background(), "EUR_USD")
	if Kind(err) != KindInsufficientHistory {
		t.Fatalf("kind = %s (err %v)", Kind(err), err)
	}
	if _, err := fx.scalers.Load(context.Background(), "EUR_USD"); !errors.Is(err, scaler.ErrNotFitted) {
		t.Error("failed training must not save a scaler")
	}
}

func TestHistoryAndAccuracy(t *testing.T) {
	cfg := DefaultConfig("EUR_USD")
	fx := newFixture(t, cfg, nil)
	ctx := context.Background()

	if sum, err := fx.svc.Accuracy(ctx); err != nil || !sum.NoData {
		t.Fatalf("empty ledger accuracy = %+v, %v; want NoData", sum, err)
	}

	seed := []struct {
		signal model.Signal
		actual float64
	}{
		{model.SignalBuy, 101},
		{model.SignalSell, 99},
		{model.SignalHold, 100.05},
		{model.SignalBuy, 99},
	}
	for _, s := range seed {
		id, _ := fx.ledger.Insert(ctx, "EUR_USD", s.signal, 100)
		if _, err := fx.ledger.PatchActualPrice(ctx, id, s.actual); err != nil {
			t.Fatal(err)
		}
	}
	_, _ = fx.ledger.Insert(ctx, "EUR_USD", model.SignalBuy, 100) // pending

	sum, err := fx.svc.Accuracy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalEvaluated != 4 || sum.Correct != 3 || sum.AccuracyPercent != 75 {
		t.Errorf("summary = %+v, want 3/4 = 75%%", sum)
	}

	_, bySignal, err := fx.svc.AccuracyBreakdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b := bySignal[model.SignalBuy]; b.TotalEvaluated != 2 || b.Correct != 1 {
		t.Errorf("buy breakdown = %+v", b)
	}

	hist, err := fx.svc.History(ctx, 0)
	if err != nil || len(hist) != 5 {
		t.Fatalf("history = %d records, %v", len(hist), err)
	}
	if hist[0].ActualPrice != nil {
		t.Error("newest record (pending) should be first")
	}
	if hist, _ := fx.svc.History(ctx, 2); len(hist) != 2 {
		t.Errorf("history limit ignored: %d", len(hist))
	}
}

func TestAccuracyWindow(t *testing.T) {
	cfg := DefaultConfig("EUR_USD")
	cfg.AccuracyWindow = 2
	fx := newFixture(t, cfg, nil)
	ctx := context.Background()
	// Oldest two are wrong, newest two right.
	for i, actual := range []float64{99, 99, 101, 101} {
		fx.ledger.Now = func() time.Time { return testEnd.Add(time.Duration(i) * time.Minute) }
		id, _ := fx.ledger.Insert(ctx, "EUR_USD", model.SignalBuy, 100)
		_, _ = fx.ledger.PatchActualPrice(ctx, id, actual)
	}
	sum, _ := fx.svc.Accuracy(ctx)
	if sum.TotalEvaluated != 2 || sum.AccuracyPercent != 100 {
		t.Errorf("windowed summary = %+v, want 2 records at 100%%", sum)
	}
}

func TestNewValidatesDeps(t *testing.T) {
	if _, err := New(DefaultConfig(), Deps{}); err == nil {
		t.Error("expected error without instruments")
	}
	if _, err := New(DefaultConfig("EUR_USD"), Deps{}); err == nil {
		t.Error("expected error without deps")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{fmt.Errorf("load: %w", scaler.ErrNotFitted), KindNotFitted},
		{forecast.ErrModelNotFound, KindNotFitted},
		{window.ErrInsufficientHistory, KindInsufficientHistory},
		{strategy.ErrInvalidForecast, KindInvalidForecast},
		{fmt.Errorf("x: %w", collector.ErrDataSourceUnavailable), KindDataSourceUnavailable},
		{fmt.Errorf("%w: %w", collector.ErrDataSourceUnavailable, context.DeadlineExceeded), KindTimeout},
		{ledger.ErrNotFound, KindNotFound},
		{storageErr("insert", errors.New("disk full")), KindStorage},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestThresholdOverridesApply(t *testing.T) {
	// A normalized forecast of 2.0 on XAU lands less than 100 above the last
	// close, so a 100 threshold turns it into hold.
	fx := newFixture(t, DefaultConfig("XAU_USD"), forecast.Static{F: constForecaster(2.0)}, "XAU_USD")
	ts := strategy.NewThresholdSet()
	ts.Set("XAU_USD", strategy.Thresholds{Buy: 100, Sell: -100})
	fx.svc.thresholds = ts

	r := resultFor(t, fx.svc.RunCycle(context.Background()), "XAU_USD")
	if r.Signal != model.SignalHold {
		t.Errorf("signal = %s, want hold under wide thresholds (last %v predicted %v)", r.Signal, r.LastClose, r.PredictedPrice)
	}
}
