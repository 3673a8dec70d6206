// Package models defines data structures for Pulse
package models

import (
	"time"
)

// ColumnKey identifies one column of a raw price table. Instrument is empty
// for flat tables keyed by field name only.
type ColumnKey struct {
	Field      string `json:"field"`                // Open, High, Low, Close, Volume
	Instrument string `json:"instrument,omitempty"` // second level of a two-level table
}

// PriceColumn is one raw column. Values are positionally aligned with the
// table index and are left untyped as delivered by the source.
type PriceColumn struct {
	Key    ColumnKey `json:"key"`
	Values []any     `json:"values"`
}

// PriceTable is a raw price table as returned by a market data source. It is
// either flat (all columns keyed by field) or two-level (field, instrument).
type PriceTable struct {
	Index   []time.Time   `json:"index"`
	Columns []PriceColumn `json:"columns"`
}

// IsHierarchical reports whether any column carries an instrument key.
func (t *PriceTable) IsHierarchical() bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c.Key.Instrument != "" {
			return true
		}
	}
	return false
}

// PricePoint is a single closing price.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ascending, duplicate-free series of closes for one
// instrument. Produced by the price table adapter and never mutated after.
type PriceSeries struct {
	Instrument string       `json:"instrument"`
	Points     []PricePoint `json:"points"`
}

// Len returns the number of points.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Closes returns a copy of the closing prices, oldest first.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Last returns the most recent point.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// RawFundamentals is a fundamentals record as delivered by a source. Pointer
// fields are nil when the source omitted the key.
type RawFundamentals struct {
	Symbol            string   `json:"symbol"`
	ShortName         string   `json:"shortName,omitempty"`
	LongName          string   `json:"longName,omitempty"`
	Currency          *string  `json:"currency,omitempty"`
	QuoteType         *string  `json:"quoteType,omitempty"` // EQUITY, ETF, MUTUALFUND, ...
	TrailingPE        *float64 `json:"trailingPE,omitempty"`
	PriceToBook       *float64 `json:"priceToBook,omitempty"`
	DividendYield     *float64 `json:"dividendYield,omitempty"` // fraction, 0.03 = 3%
	RecommendationKey *string  `json:"recommendationKey,omitempty"`
}

// DividendPayment is one historical per-share dividend payment.
type DividendPayment struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}
