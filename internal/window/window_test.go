package window

import (
	"errors"
	"testing"

	"SignalSentinel/internal/model"
)

func ramp(n int) []model.FeatureRow {
	rows := make([]model.FeatureRow, n)
	for i := range rows {
		v := float64(i)
		rows[i] = model.FeatureRow{v, v, v, v, v}
	}
	return rows
}

func TestBuildWindows_CountAndLength(t *testing.T) {
	series := ramp(200)
	for _, horizon := range []int{0, 1, 5} {
		seq, err := BuildWindows(series, 48, horizon)
		if err != nil {
			t.Fatalf("horizon %d: %v", horizon, err)
		}
		n := 0
		for w, target := range seq {
			if len(w) != 48 {
				t.Fatalf("window %d has length %d", n, len(w))
			}
			i := 48 + n
			if w[0][model.ColClose] != float64(i-48) || w.Last()[model.ColClose] != float64(i-1) {
				t.Fatalf("window %d covers wrong rows: %v..%v", n, w[0][0], w.Last()[0])
			}
			if target != float64(i+horizon) {
				t.Fatalf("window %d: expected target %d, got %v", n, i+horizon, target)
			}
			n++
		}
		if limit := 200 - 48 - horizon; n > limit {
			t.Errorf("horizon %d: %d windows exceeds %d", horizon, n, limit)
		}
		if n != Count(200, 48, horizon) {
			t.Errorf("horizon %d: Count=%d, iterated %d", horizon, Count(200, 48, horizon), n)
		}
	}
}

func TestBuildWindows_Restartable(t *testing.T) {
	seq, err := BuildWindows(ramp(60), 48, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	first, second := count(), count()
	if first != 11 || second != first {
		t.Errorf("expected 11 pairs twice, got %d and %d", first, second)
	}
}

func TestBuildWindows_EarlyStop(t *testing.T) {
	seq, _ := BuildWindows(ramp(100), 10, 1)
	n := 0
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("expected to stop after 3, got %d", n)
	}
}

func TestBuildWindows_TooLarge(t *testing.T) {
	tests := []struct {
		rows, lookback, horizon int
	}{
		{49, 48, 1},
		{48, 48, 0},
		{10, 48, 1},
	}
	for _, tt := range tests {
		_, err := BuildWindows(ramp(tt.rows), tt.lookback, tt.horizon)
		if !errors.Is(err, ErrWindowTooLarge) {
			t.Errorf("rows=%d lookback=%d horizon=%d: expected ErrWindowTooLarge, got %v", tt.rows, tt.lookback, tt.horizon, err)
		}
	}
	if _, err := BuildWindows(ramp(50), 48, 1); err != nil {
		t.Errorf("50 rows with 48+1 should work: %v", err)
	}
	if _, err := BuildWindows(ramp(50), 0, 1); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestBuildLatestWindow(t *testing.T) {
	series := ramp(100)
	w, err := BuildLatestWindow(series, 48)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w) != 48 {
		t.Fatalf("expected 48 rows, got %d", len(w))
	}
	if w.Last()[model.ColClose] != 99 || w[0][model.ColClose] != 52 {
		t.Errorf("unexpected window bounds %v..%v", w[0][0], w.Last()[0])
	}
	// the window must not alias the series
	w[0][0] = -1
	if series[52][0] == -1 {
		t.Error("window aliases the input series")
	}

	if _, err := BuildLatestWindow(ramp(47), 48); !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("expected ErrInsufficientHistory, got %v", err)
	}
}
