package pipeline

import (
	"context"
	"errors"
	"fmt"

	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/forecast"
	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/scaler"
	"SignalSentinel/internal/strategy"
	"SignalSentinel/internal/window"
)

// ErrStorage wraps ledger and state-store write failures.
var ErrStorage = errors.New("storage failure")

// ErrorKind is the stable, caller-facing class of a failure.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindNotFitted             ErrorKind = "not_fitted"
	KindInsufficientHistory   ErrorKind = "insufficient_history"
	KindInvalidForecast       ErrorKind = "invalid_forecast"
	KindDataSourceUnavailable ErrorKind = "data_source_unavailable"
	KindNotFound              ErrorKind = "not_found"
	KindTimeout               ErrorKind = "timeout"
	KindStorage               ErrorKind = "storage"
	KindInternal              ErrorKind = "internal"
)

// Kind classifies err. Deadlines win over the error that surfaced them.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.Is(err, scaler.ErrNotFitted), errors.Is(err, forecast.ErrModelNotFound):
		return KindNotFitted
	case errors.Is(err, window.ErrInsufficientHistory),
		errors.Is(err, window.ErrWindowTooLarge),
		errors.Is(err, scaler.ErrInsufficientData):
		return KindInsufficientHistory
	case errors.Is(err, strategy.ErrInvalidForecast):
		return KindInvalidForecast
	case errors.Is(err, collector.ErrDataSourceUnavailable):
		return KindDataSourceUnavailable
	case errors.Is(err, ledger.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindInternal
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
