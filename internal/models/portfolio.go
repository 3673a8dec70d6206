package models

import (
	"math"
	"sort"
	"strings"
	"time"
)

// LineItem is one configured portfolio position
type LineItem struct {
	InstrumentID string  `json:"instrument_id" toml:"id"`
	DisplayName  string  `json:"display_name" toml:"name"`
	Quantity     float64 `json:"quantity" toml:"quantity"`
}

// ValidQuantity reports whether the quantity is positive and finite.
func (l LineItem) ValidQuantity() bool {
	return l.Quantity > 0 && !math.IsInf(l.Quantity, 1)
}

// RateSource records where an exchange rate came from
type RateSource string

const (
	RateIdentity RateSource = "IDENTITY"
	RateLive     RateSource = "LIVE"
	RateFallback RateSource = "FALLBACK"
)

// RateQuote is a resolved multiplier converting From into To.
type RateQuote struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Rate   float64    `json:"rate"`
	Source RateSource `json:"source"`
}

// RateTable holds the rates resolved once for an aggregation pass, keyed by
// source currency. All positions in a pass are valued against it.
type RateTable struct {
	Target string               `json:"target"`
	Quotes map[string]RateQuote `json:"quotes"`
}

// Lookup returns the quote converting currency into the table's target.
func (t RateTable) Lookup(currency string) (RateQuote, bool) {
	q, ok := t.Quotes[strings.ToUpper(currency)]
	return q, ok
}

// Currencies returns the source currencies in the table, sorted.
func (t RateTable) Currencies() []string {
	codes := make([]string, 0, len(t.Quotes))
	for code := range t.Quotes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// PositionValuation is the fully computed view of one line item.
type PositionValuation struct {
	LineItem                              LineItem           `json:"line_item"`
	PriceNative                           float64            `json:"price_native"`
	PriceDisplay                          Money              `json:"price_display"`
	PreviousClose                         float64            `json:"previous_close"`
	ChangePct                             float64            `json:"change_pct"` // vs previous trading day
	AsOfDate                              time.Time          `json:"as_of_date"` // date of the last close
	Indicators                            IndicatorSnapshot  `json:"indicators"`
	Fundamentals                          FundamentalsRecord `json:"fundamentals"`
	Dividend                              DividendEstimate   `json:"dividend"`
	Rate                                  RateQuote          `json:"rate"`
	ValueInTargetCurrency                 float64            `json:"value_in_target_currency"`
	EstimatedAnnualIncomeInTargetCurrency float64            `json:"estimated_annual_income_in_target_currency"`
}

// PositionResult pairs a line item with its valuation or the error that
// prevented it.
type PositionResult struct {
	LineItem  LineItem
	Valuation *PositionValuation
	Err       error
}

// Exclusion reports a line item left out of the totals and why.
type Exclusion struct {
	InstrumentID string `json:"instrument_id"`
	DisplayName  string `json:"display_name"`
	Kind         string `json:"kind"`   // no_data, insufficient_history, unsupported_currency, error
	Reason       string `json:"reason"` // error message
}

// PortfolioSummary is the aggregate of one valuation pass.
type PortfolioSummary struct {
	RunID                string              `json:"run_id"`
	TargetCurrency       string              `json:"target_currency"`
	TotalValue           float64             `json:"total_value"`
	TotalEstimatedIncome float64             `json:"total_estimated_income"`
	PortfolioYieldPct    Optional[float64]   `json:"portfolio_yield_pct"` // income / value, absent when value is zero
	AsOf                 time.Time           `json:"as_of"`
	Positions            []PositionValuation `json:"positions"`
	Excluded             []Exclusion         `json:"excluded"`
	Rates                RateTable           `json:"rates"`
}

// TotalValueDisplay returns the total value tagged with the target currency.
func (s *PortfolioSummary) TotalValueDisplay() Money {
	return NewMoney(s.TotalValue, s.TargetCurrency)
}

// TotalIncomeDisplay returns the estimated income tagged with the target currency.
func (s *PortfolioSummary) TotalIncomeDisplay() Money {
	return NewMoney(s.TotalEstimatedIncome, s.TargetCurrency)
}

// WatchItem is one configured watchlist instrument (no quantity)
type WatchItem struct {
	InstrumentID string `json:"instrument_id" toml:"id"`
	DisplayName  string `json:"display_name" toml:"name"`
}

// WatchEntry is the day-change view of one watchlist instrument.
type WatchEntry struct {
	Item          WatchItem `json:"item"`
	Price         Money     `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	ChangePct     float64   `json:"change_pct"`
	AsOfDate      time.Time `json:"as_of_date"`
	Kind          string    `json:"kind,omitempty"`  // set when the entry failed
	Error         string    `json:"error,omitempty"` // set when the entry failed
}

// InstrumentReport is the analysis bundle for a single instrument.
type InstrumentReport struct {
	Item         WatchItem          `json:"item"`
	Price        Money              `json:"price"`
	Indicators   IndicatorSnapshot  `json:"indicators"`
	Fundamentals FundamentalsRecord `json:"fundamentals"`
	Dividend     DividendEstimate   `json:"dividend"`
	ComputedAt   time.Time          `json:"computed_at"`
}
