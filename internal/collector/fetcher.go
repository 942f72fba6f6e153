package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"SignalSentinel/internal/model"
)

// ErrDataSourceUnavailable marks any failure to obtain bars upstream.
var ErrDataSourceUnavailable = errors.New("data source unavailable")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns up to count of the most recent bars, oldest first.
	FetchBars(ctx context.Context, instrument string, count int) ([]model.OHLCV, error)
	Name() string
}

func unavailable(source string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDataSourceUnavailable, source, err)
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
