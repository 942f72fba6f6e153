package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"SignalSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Interval  string
	Client    *http.Client
	SymbolMap map[string]string // maps instrument to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(interval, proxyURL string) *YahooFetcher {
	if interval == "" {
		interval = "5m"
	}
	return &YahooFetcher{
		BaseURL:  yahooBaseURL,
		Interval: interval,
		Client:   newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"XAU_USD": "GC=F",
			"EUR_USD": "EURUSD=X",
			"GBP_USD": "GBPUSD=X",
			"USD_JPY": "JPY=X",
			"AUD_USD": "AUDUSD=X",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(instrument string) string {
	if mapped, ok := f.SymbolMap[instrument]; ok {
		return mapped
	}
	return instrument
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func deref(v []*float64, i int) float64 {
	if i >= len(v) || v[i] == nil {
		return 0
	}
	return *v[i]
}

var yahooIntervals = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"1d":  24 * time.Hour,
	"1wk": 7 * 24 * time.Hour,
}

var yahooRanges = []struct {
	name string
	span time.Duration
}{
	{"1d", 24 * time.Hour},
	{"5d", 5 * 24 * time.Hour},
	{"1mo", 30 * 24 * time.Hour},
	{"3mo", 90 * 24 * time.Hour},
	{"6mo", 180 * 24 * time.Hour},
	{"1y", 365 * 24 * time.Hour},
	{"2y", 730 * 24 * time.Hour},
}

// rangeFor picks the smallest chart range that covers count bars. Markets
// close on weekends, so the wall-clock span is padded by half.
func rangeFor(interval string, count int) string {
	step, ok := yahooIntervals[interval]
	if !ok {
		step = 24 * time.Hour
	}
	need := step * time.Duration(count) * 3 / 2
	for _, r := range yahooRanges {
		if r.span >= need {
			return r.name
		}
	}
	return yahooRanges[len(yahooRanges)-1].name
}

func (f *YahooFetcher) FetchBars(ctx context.Context, instrument string, count int) ([]model.OHLCV, error) {
	if count <= 0 {
		return nil, fmt.Errorf("yahoo: count must be positive, got %d", count)
	}
	bars, err := f.fetchChart(ctx, instrument, f.Interval, rangeFor(f.Interval, count))
	if err != nil {
		return nil, err
	}
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, instrument, interval, rng string) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(instrument)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, unavailable(f.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(f.Name(), fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(f.Name(), fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, unavailable(f.Name(), fmt.Errorf("decode: %w", err))
	}
	if chart.Chart.Error != nil {
		return nil, unavailable(f.Name(), fmt.Errorf("api error: %s", chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, unavailable(f.Name(), fmt.Errorf("no data returned for %s", instrument))
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o := deref(quote.Open, i)
		h := deref(quote.High, i)
		l := deref(quote.Low, i)
		c := deref(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: deref(quote.Volume, i),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
