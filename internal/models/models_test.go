package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	some := Some(0.0)
	v, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, "0", some.String())

	none := None[float64]()
	assert.False(t, none.Valid)
	assert.Equal(t, 7.5, none.OrElse(7.5))
	assert.Equal(t, "n/a", none.String())
}

func TestOptional_JSON(t *testing.T) {
	type wrapper struct {
		PE  Optional[float64] `json:"pe"`
		Rec Optional[string]  `json:"rec"`
	}

	data, err := json.Marshal(wrapper{PE: Some(0.0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pe": 0, "rec": null}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"pe": null, "rec": "buy"}`), &w))
	assert.False(t, w.PE.Valid)
	assert.Equal(t, Some("buy"), w.Rec)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"no data", &NoDataError{Instrument: "X"}, KindNoData},
		{"wrapped no data", fmt.Errorf("fetch: %w", &NoDataError{Instrument: "X"}), KindNoData},
		{"history", &InsufficientHistoryError{Instrument: "X", Required: 2, Available: 1}, KindInsufficientHistory},
		{"currency", &UnsupportedCurrencyError{From: "GBP", To: "PLN"}, KindUnsupportedCurrency},
		{"deadline", context.DeadlineExceeded, KindNoData},
		{"cancelled", fmt.Errorf("x: %w", context.Canceled), KindNoData},
		{"quantity", fmt.Errorf("X: %w", ErrInvalidQuantity), KindError},
		{"other", errors.New("boom"), KindError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("404")
	err := &NoDataError{Instrument: "KRU.WA", Cause: cause}
	assert.Equal(t, "no data for KRU.WA: 404", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "no data for KRU.WA", (&NoDataError{Instrument: "KRU.WA"}).Error())
	assert.Equal(t,
		"insufficient history for KTY.WA: change percent needs 2 points, have 1",
		(&InsufficientHistoryError{Instrument: "KTY.WA", Operation: "change percent", Required: 2, Available: 1}).Error())
	assert.Equal(t, "unsupported currency pair GBP/PLN", (&UnsupportedCurrencyError{From: "GBP", To: "PLN"}).Error())
}

func TestLookback_Cutoff(t *testing.T) {
	latest := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		lookback Lookback
		want     time.Time
		wantErr  bool
	}{
		{"max", time.Time{}, false},
		{"", time.Time{}, false},
		{"5d", time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC), false},
		{"2wk", time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), false},
		{"6mo", time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), false},
		{"1y", time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), false},
		{"YTD", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"0d", time.Time{}, true},
		{"3q", time.Time{}, true},
		{"soon", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.lookback), func(t *testing.T) {
			got, err := tt.lookback.Cutoff(latest)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Error(t, tt.lookback.Validate())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoney(t *testing.T) {
	assert.True(t, IsKnownCurrency("PLN"))
	assert.True(t, IsKnownCurrency("EUR"))
	assert.False(t, IsKnownCurrency("XYZ"))
	assert.False(t, IsKnownCurrency(""))

	assert.Equal(t, "12.50 XYZ", NewMoney(12.5, "XYZ").String())
	assert.Contains(t, NewMoney(1234.5, "EUR").String(), "1,234.50")
}

func TestMoney_OutOfRange(t *testing.T) {
	assert.Equal(t, "100000000000000000.00 PLN", NewMoney(1e17, "PLN").String())
	assert.Equal(t, "-100000000000000000.00 PLN", NewMoney(-1e17, "PLN").String())

	require.NotPanics(t, func() {
		assert.Equal(t, "+Inf PLN", NewMoney(math.Inf(1), "PLN").String())
		assert.Equal(t, "NaN EUR", NewMoney(math.NaN(), "EUR").String())
	})
}

func TestDividendEstimate_String(t *testing.T) {
	assert.Equal(t, "9.00%", DividendEstimate{YieldPct: 9, Basis: DividendReported}.String())
	assert.Equal(t, "2.00% (est.)", DividendEstimate{YieldPct: 2, Basis: DividendDerived}.String())
	assert.Equal(t, "5.00% (assumed)", DividendEstimate{YieldPct: 5, Basis: DividendAssumedDefault}.String())
	assert.Equal(t, "0% (none)", DividendEstimate{Basis: DividendNone}.String())
}

func TestPriceTable_IsHierarchical(t *testing.T) {
	var nilTable *PriceTable
	assert.False(t, nilTable.IsHierarchical())
	assert.False(t, (&PriceTable{Columns: []PriceColumn{{Key: ColumnKey{Field: "Close"}}}}).IsHierarchical())
	assert.True(t, (&PriceTable{Columns: []PriceColumn{{Key: ColumnKey{Field: "Close", Instrument: "PKO.WA"}}}}).IsHierarchical())
}

func TestPriceSeries(t *testing.T) {
	var empty PriceSeries
	_, ok := empty.Last()
	assert.False(t, ok)
	assert.Empty(t, empty.Closes())

	s := PriceSeries{Points: []PricePoint{{Close: 1}, {Close: 2}}}
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 2.0, last.Close)

	closes := s.Closes()
	closes[0] = 99
	assert.Equal(t, 1.0, s.Points[0].Close)
}

func TestRateTable(t *testing.T) {
	table := RateTable{
		Target: "PLN",
		Quotes: map[string]RateQuote{
			"USD": {From: "USD", To: "PLN", Rate: 4.3, Source: RateFallback},
			"EUR": {From: "EUR", To: "PLN", Rate: 4.4, Source: RateLive},
		},
	}

	q, ok := table.Lookup("eur")
	require.True(t, ok)
	assert.Equal(t, 4.4, q.Rate)

	_, ok = table.Lookup("GBP")
	assert.False(t, ok)

	assert.Equal(t, []string{"EUR", "USD"}, table.Currencies())
}

func TestLineItem_ValidQuantity(t *testing.T) {
	tests := []struct {
		quantity float64
		want     bool
	}{
		{1, true},
		{0.5, true},
		{math.MaxFloat64, true},
		{0, false},
		{-3, false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
		{math.NaN(), false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.quantity), func(t *testing.T) {
			assert.Equal(t, tt.want, LineItem{InstrumentID: "X", Quantity: tt.quantity}.ValidQuantity())
		})
	}
}
