package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"SignalSentinel/internal/model"
)

// OANDA rejects candle requests above this count.
const oandaMaxCount = 5000

// OandaFetcher implements Fetcher using the OANDA v20 REST API.
// Only complete candles are returned, priced at mid.
type OandaFetcher struct {
	BaseURL     string
	Token       string
	Granularity string
	Client      *http.Client
	Limiter     *rate.Limiter
}

// NewOandaFetcher creates a fetcher with optional proxy support. rps <= 0
// disables client-side rate limiting.
func NewOandaFetcher(baseURL, token, granularity, proxyURL string, rps float64) *OandaFetcher {
	f := &OandaFetcher{
		BaseURL:     baseURL,
		Token:       token,
		Granularity: granularity,
		Client:      newHTTPClient(proxyURL),
	}
	if rps > 0 {
		f.Limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return f
}

func (f *OandaFetcher) Name() string { return "oanda" }

type oandaCandles struct {
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
	Candles     []struct {
		Complete bool   `json:"complete"`
		Volume   int64  `json:"volume"`
		Time     string `json:"time"`
		Mid      *struct {
			O string `json:"o"`
			H string `json:"h"`
			L string `json:"l"`
			C string `json:"c"`
		} `json:"mid"`
	} `json:"candles"`
}

func (f *OandaFetcher) FetchBars(ctx context.Context, instrument string, count int) ([]model.OHLCV, error) {
	if count <= 0 {
		return nil, fmt.Errorf("oanda: count must be positive, got %d", count)
	}
	if count > oandaMaxCount {
		count = oandaMaxCount
	}
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, unavailable(f.Name(), err)
		}
	}

	q := url.Values{}
	q.Set("granularity", f.Granularity)
	q.Set("count", strconv.Itoa(count))
	q.Set("price", "M")
	endpoint := fmt.Sprintf("%s/v3/instruments/%s/candles?%s", f.BaseURL, url.PathEscape(instrument), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.Token)
	}
	req.Header.Set("Accept-Datetime-Format", "RFC3339")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, unavailable(f.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, unavailable(f.Name(), fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body)))
	}

	var payload oandaCandles
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, unavailable(f.Name(), fmt.Errorf("decode candles: %w", err))
	}

	bars := make([]model.OHLCV, 0, len(payload.Candles))
	for _, c := range payload.Candles {
		if !c.Complete || c.Mid == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, c.Time)
		if err != nil {
			return nil, unavailable(f.Name(), fmt.Errorf("parse candle time %q: %w", c.Time, err))
		}
		bar := model.OHLCV{Time: ts, Volume: float64(c.Volume)}
		for _, p := range []struct {
			dst *float64
			raw string
		}{{&bar.Open, c.Mid.O}, {&bar.High, c.Mid.H}, {&bar.Low, c.Mid.L}, {&bar.Close, c.Mid.C}} {
			v, err := strconv.ParseFloat(p.raw, 64)
			if err != nil {
				return nil, unavailable(f.Name(), fmt.Errorf("parse price %q: %w", p.raw, err))
			}
			*p.dst = v
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
