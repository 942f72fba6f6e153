package strategy

import (
	"errors"
	"math"
	"testing"

	"SignalSentinel/internal/model"
)

func TestDecide_Determinism(t *testing.T) {
	tests := []struct {
		last, pred float64
		want       model.Signal
	}{
		{100.0, 100.11, model.SignalBuy},
		{100.0, 99.85, model.SignalSell},
		{100.0, 100.05, model.SignalHold},
		{100.0, 100.0, model.SignalHold},
		{0, 0.1, model.SignalHold},  // exactly +0.1 is not strictly greater
		{0, -0.1, model.SignalHold}, // exactly -0.1 is not strictly less
		{0, 0.1000001, model.SignalBuy},
		{0, -0.1000001, model.SignalSell},
	}
	for _, tt := range tests {
		for i := 0; i < 3; i++ {
			got, err := Decide(tt.last, tt.pred, DefaultThresholds)
			if err != nil {
				t.Fatalf("Decide(%v, %v): unexpected error %v", tt.last, tt.pred, err)
			}
			if got != tt.want {
				t.Errorf("Decide(%v, %v): expected %s, got %s", tt.last, tt.pred, tt.want, got)
			}
		}
	}
}

func TestDecide_InvalidForecast(t *testing.T) {
	inputs := [][2]float64{
		{math.NaN(), 1},
		{1, math.NaN()},
		{math.Inf(1), 1},
		{1, math.Inf(-1)},
	}
	for _, in := range inputs {
		if _, err := Decide(in[0], in[1], DefaultThresholds); !errors.Is(err, ErrInvalidForecast) {
			t.Errorf("Decide(%v, %v): expected ErrInvalidForecast, got %v", in[0], in[1], err)
		}
	}
}

func TestThresholdSet_PerInstrument(t *testing.T) {
	ts := NewThresholdSet()
	ts.Set("EUR_USD", Thresholds{Buy: 0.0005, Sell: -0.0005})

	sig, _ := Decide(1.0850, 1.0860, ts.For("EUR_USD"))
	if sig != model.SignalBuy {
		t.Errorf("EUR_USD with pip-scale thresholds: expected buy, got %s", sig)
	}
	sig, _ = Decide(1.0850, 1.0860, ts.For("XAU_USD"))
	if sig != model.SignalHold {
		t.Errorf("XAU_USD with default thresholds: expected hold, got %s", sig)
	}

	var nilSet *ThresholdSet
	if nilSet.For("GBP_USD") != DefaultThresholds {
		t.Error("nil set should fall back to defaults")
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := DefaultThresholds.Validate(); err != nil {
		t.Errorf("defaults should be valid: %v", err)
	}
	if err := (Thresholds{Buy: -1, Sell: 1}).Validate(); err == nil {
		t.Error("expected error for inverted thresholds")
	}
}
