package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"SignalSentinel/internal/model"
)

// Collector wraps a Fetcher and cleans what it returns.
type Collector struct {
	Fetcher Fetcher
	log     zerolog.Logger
	now     func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, log zerolog.Logger) *Collector {
	return &Collector{
		Fetcher: fetcher,
		log:     log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
		now:     time.Now,
	}
}

// Collect fetches up to count bars for instrument. Bars with non-positive or
// non-finite prices are dropped. An empty result is reported as
// ErrDataSourceUnavailable.
func (c *Collector) Collect(ctx context.Context, instrument string, count int) (model.PriceSeries, error) {
	bars, err := c.Fetcher.FetchBars(ctx, instrument, count)
	if err != nil {
		if !errors.Is(err, ErrDataSourceUnavailable) {
			err = unavailable(c.Fetcher.Name(), err)
		}
		return model.PriceSeries{}, fmt.Errorf("collect %s: %w", instrument, err)
	}

	clean := bars[:0:0]
	for _, b := range bars {
		if validBar(b) {
			clean = append(clean, b)
		}
	}
	if dropped := len(bars) - len(clean); dropped > 0 {
		c.log.Warn().Str("instrument", instrument).Int("dropped", dropped).Msg("dropped malformed bars")
	}
	if len(clean) == 0 {
		return model.PriceSeries{}, fmt.Errorf("collect %s: %w", instrument,
			unavailable(c.Fetcher.Name(), errors.New("no bars returned")))
	}

	c.log.Debug().Str("instrument", instrument).Int("bars", len(clean)).Msg("bars collected")
	return model.PriceSeries{Instrument: instrument, Bars: clean, FetchedAt: c.now().UTC()}, nil
}

// LatestClose returns the freshest observed close for instrument.
func (c *Collector) LatestClose(ctx context.Context, instrument string) (float64, error) {
	series, err := c.Collect(ctx, instrument, 2)
	if err != nil {
		return 0, err
	}
	return series.LastClose(), nil
}

func validBar(b model.OHLCV) bool {
	vals := b.Values()
	for _, v := range vals[:model.ColVolume] {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !math.IsNaN(b.Volume) && b.Volume >= 0
}

// MockFetcher returns controllable deterministic data for development and
// testing. Bars follow a slow sine wave around the instrument's base price.
type MockFetcher struct {
	mu sync.Mutex
	// BasePrice per instrument; DefaultPrice is used for the rest.
	BasePrice    map[string]float64
	DefaultPrice float64
	// Bars, when set for an instrument, are returned verbatim.
	Bars map[string][]model.OHLCV
	// Fail injects an error for an instrument.
	Fail map[string]error
	// Delay is applied before every fetch and honours context cancellation.
	Delay time.Duration
	// Step is the bar spacing.
	Step  time.Duration
	End   time.Time
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, instrument string, count int) ([]model.OHLCV, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[instrument]++
	failErr := m.Fail[instrument]
	fixed, hasFixed := m.Bars[instrument]
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, unavailable(m.Name(), ctx.Err())
		}
	}
	if failErr != nil {
		return nil, unavailable(m.Name(), failErr)
	}
	if hasFixed {
		if len(fixed) > count {
			fixed = fixed[len(fixed)-count:]
		}
		out := make([]model.OHLCV, len(fixed))
		copy(out, fixed)
		return out, nil
	}

	base := m.DefaultPrice
	if p, ok := m.BasePrice[instrument]; ok {
		base = p
	}
	if base <= 0 {
		base = 100
	}
	step := m.Step
	if step <= 0 {
		step = 5 * time.Minute
	}
	end := m.End
	if end.IsZero() {
		end = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return GenerateBars(base, count, end, step), nil
}

// Calls reports how many fetches were made for instrument.
func (m *MockFetcher) Calls(instrument string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[instrument]
}

// GenerateBars produces count deterministic bars ending at end.
func GenerateBars(basePrice float64, count int, end time.Time, step time.Duration) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.01*math.Sin(float64(i)/7))
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.002,
			Low:    p * 0.997,
			Close:  p,
			Volume: 1000 + float64(i%17)*10,
		}
	}
	return bars
}
