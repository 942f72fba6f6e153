package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Column indexes one OHLCV field inside a FeatureRow.
type Column int

const (
	ColOpen Column = iota
	ColHigh
	ColLow
	ColClose
	ColVolume
)

// NumColumns is the width of a feature row.
const NumColumns = 5

var columnNames = [NumColumns]string{"open", "high", "low", "close", "volume"}

func (c Column) String() string {
	if c < 0 || int(c) >= NumColumns {
		return "unknown"
	}
	return columnNames[c]
}

// Values returns the bar as a row in column order.
func (b OHLCV) Values() [NumColumns]float64 {
	return [NumColumns]float64{b.Open, b.High, b.Low, b.Close, b.Volume}
}

// FeatureRow is one bar in normalized space.
type FeatureRow [NumColumns]float64

// FeatureWindow is an ordered run of normalized bars, oldest first.
type FeatureWindow []FeatureRow

// Last returns the most recent row of the window.
func (w FeatureWindow) Last() FeatureRow {
	return w[len(w)-1]
}

// Closes extracts the close column of the window.
func (w FeatureWindow) Closes() []float64 {
	out := make([]float64, len(w))
	for i, r := range w {
		out[i] = r[ColClose]
	}
	return out
}

// PriceSeries holds raw bars fetched for one instrument.
type PriceSeries struct {
	Instrument string
	Bars       []OHLCV
	FetchedAt  time.Time
}

// LastClose returns the close of the newest bar, or 0 for an empty series.
func (s PriceSeries) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}
