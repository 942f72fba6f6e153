package calculator

import (
	"math"
	"testing"
	"time"

	"SignalSentinel/internal/model"
)

func TestCalculateSMA(t *testing.T) {
	sma, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sma != 4.5 {
		t.Errorf("expected 4.5, got %v", sma)
	}
	if _, err := CalculateSMA([]float64{1}, 2); err == nil {
		t.Error("expected error for short input")
	}
	if _, err := CalculateSMA([]float64{1, 2}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestColumnRange(t *testing.T) {
	bars := []model.OHLCV{
		{Time: time.Unix(0, 0), Open: 1, High: 5, Low: 0.5, Close: 2, Volume: 100},
		{Time: time.Unix(60, 0), Open: 3, High: 4, Low: 1, Close: 1, Volume: 50},
	}
	low, high, err := ColumnRange(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantLow := [model.NumColumns]float64{1, 4, 0.5, 1, 50}
	wantHigh := [model.NumColumns]float64{3, 5, 1, 2, 100}
	if low != wantLow {
		t.Errorf("low: expected %v, got %v", wantLow, low)
	}
	if high != wantHigh {
		t.Errorf("high: expected %v, got %v", wantHigh, high)
	}
	if _, _, err := ColumnRange(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestRangePosition_NoClamp(t *testing.T) {
	tests := []struct {
		v, low, high, want float64
	}{
		{5, 0, 10, 0.5},
		{12, 0, 10, 1.2},
		{-1, 0, 10, -0.1},
		{7, 7, 7, 0},
	}
	for _, tt := range tests {
		got := RangePosition(tt.v, tt.low, tt.high)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("RangePosition(%v, %v, %v): expected %v, got %v", tt.v, tt.low, tt.high, tt.want, got)
		}
		if tt.low != tt.high {
			back := FromRangePosition(got, tt.low, tt.high)
			if math.Abs(back-tt.v) > 1e-9 {
				t.Errorf("round trip of %v gave %v", tt.v, back)
			}
		}
	}
}
