package models

import (
	"fmt"
)

// InstrumentType classifies an instrument
type InstrumentType string

const (
	InstrumentEquity InstrumentType = "EQUITY"
	InstrumentETF    InstrumentType = "ETF"
	InstrumentOther  InstrumentType = "OTHER"
)

// FundamentalsRecord is the normalized fundamentals snapshot for one
// instrument. Absent ratios mean "not applicable", which is not the same as
// a reported zero.
type FundamentalsRecord struct {
	Symbol                string            `json:"symbol"`
	Name                  string            `json:"name,omitempty"`
	Currency              string            `json:"currency"`
	CurrencyInferred      bool              `json:"currency_inferred,omitempty"` // true when derived from the exchange suffix
	InstrumentType        InstrumentType    `json:"instrument_type"`
	TrailingPE            Optional[float64] `json:"trailing_pe"`
	PriceToBook           Optional[float64] `json:"price_to_book"`
	AnalystRecommendation Optional[string]  `json:"analyst_recommendation"`
}

// DividendBasis records where a dividend yield estimate came from
type DividendBasis string

const (
	DividendReported       DividendBasis = "REPORTED"
	DividendDerived        DividendBasis = "DERIVED_FROM_LAST_PAYMENT"
	DividendAssumedDefault DividendBasis = "ASSUMED_DEFAULT"
	DividendNone           DividendBasis = "NONE"
)

// DividendEstimate is a corrected dividend yield with its provenance.
type DividendEstimate struct {
	YieldPct float64       `json:"yield_pct"` // always >= 0
	Basis    DividendBasis `json:"basis"`
}

// String renders the estimate with a provenance label.
func (d DividendEstimate) String() string {
	switch d.Basis {
	case DividendDerived:
		return fmt.Sprintf("%.2f%% (est.)", d.YieldPct)
	case DividendAssumedDefault:
		return fmt.Sprintf("%.2f%% (assumed)", d.YieldPct)
	case DividendNone:
		return "0% (none)"
	default:
		return fmt.Sprintf("%.2f%%", d.YieldPct)
	}
}
