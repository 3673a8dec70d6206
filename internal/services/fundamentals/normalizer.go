// Package fundamentals normalizes raw fundamentals and corrects dividend yields
package fundamentals

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/pulse/internal/interfaces"
	"github.com/bobmcallan/pulse/internal/models"
)

// Dividend policy defaults
const (
	DefaultDividendCeiling = 0.20 // raw fraction above this is implausible
	DefaultAssumedYieldPct = 5.0
)

// fundMarkers flag an ETF by symbol or name when no P/E is reported
var fundMarkers = []string{"ETF", "UCITS", "ISHARES", "VANGUARD", "XTRACKERS", "SPDR", "AMUNDI", "FUND"}

// suffixCurrency maps exchange suffixes to their trading currency
var suffixCurrency = map[string]string{
	".WA": "PLN",
	".DE": "EUR",
	".F":  "EUR",
	".PA": "EUR",
	".AS": "EUR",
	".MI": "EUR",
	".L":  "GBP",
}

// Normalizer turns raw fundamentals into a typed record and a corrected
// dividend estimate.
type Normalizer struct {
	dividends       interfaces.DividendSource
	ceiling         float64
	assumedYieldPct float64
	logger          arbor.ILogger
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithDividendCeiling overrides the plausible raw yield ceiling (a fraction).
func WithDividendCeiling(ceiling float64) Option {
	return func(n *Normalizer) {
		if ceiling > 0 {
			n.ceiling = ceiling
		}
	}
}

// WithAssumedYield overrides the yield used when re-derivation fails.
func WithAssumedYield(pct float64) Option {
	return func(n *Normalizer) {
		if pct >= 0 {
			n.assumedYieldPct = pct
		}
	}
}

// NewNormalizer creates a normalizer that re-derives implausible yields from
// the dividend history served by dividends.
func NewNormalizer(dividends interfaces.DividendSource, logger arbor.ILogger, opts ...Option) *Normalizer {
	n := &Normalizer{
		dividends:       dividends,
		ceiling:         DefaultDividendCeiling,
		assumedYieldPct: DefaultAssumedYieldPct,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize extracts the fundamentals record and the dividend estimate.
// It never fails: anomalies are corrected and tagged with a basis.
func (n *Normalizer) Normalize(ctx context.Context, raw *models.RawFundamentals, currentPrice float64) (models.FundamentalsRecord, models.DividendEstimate) {
	if raw == nil {
		raw = &models.RawFundamentals{}
	}
	record := n.Extract(raw)
	dividend := n.EstimateDividend(ctx, raw.Symbol, raw.DividendYield, currentPrice)
	return record, dividend
}

// Extract builds the typed fundamentals record.
func (n *Normalizer) Extract(raw *models.RawFundamentals) models.FundamentalsRecord {
	record := models.FundamentalsRecord{
		Symbol:      raw.Symbol,
		Name:        displayName(raw),
		TrailingPE:  finite(raw.TrailingPE),
		PriceToBook: finite(raw.PriceToBook),
	}

	if raw.RecommendationKey != nil && strings.TrimSpace(*raw.RecommendationKey) != "" {
		record.AnalystRecommendation = models.Some(strings.TrimSpace(*raw.RecommendationKey))
	}

	if raw.Currency != nil && strings.TrimSpace(*raw.Currency) != "" {
		record.Currency = strings.ToUpper(strings.TrimSpace(*raw.Currency))
	} else {
		record.Currency = InferCurrency(raw.Symbol)
		record.CurrencyInferred = true
	}

	record.InstrumentType = classify(raw, record.TrailingPE.Valid)
	return record
}

// EstimateDividend applies the correction policy to a raw yield fraction.
func (n *Normalizer) EstimateDividend(ctx context.Context, symbol string, rawYield *float64, currentPrice float64) models.DividendEstimate {
	if rawYield != nil && !math.IsNaN(*rawYield) {
		y := *rawYield
		if y == 0 {
			return models.DividendEstimate{YieldPct: 0, Basis: models.DividendReported}
		}
		if y > 0 && y <= n.ceiling {
			return models.DividendEstimate{YieldPct: y * 100, Basis: models.DividendReported}
		}
		n.logger.Debug().
			Str("symbol", symbol).
			Str("raw_yield", fmt.Sprintf("%g", y)).
			Msg("Implausible dividend yield, re-deriving from payments")
	}

	return n.derive(ctx, symbol, currentPrice)
}

func (n *Normalizer) derive(ctx context.Context, symbol string, currentPrice float64) models.DividendEstimate {
	assumed := models.DividendEstimate{YieldPct: n.assumedYieldPct, Basis: models.DividendAssumedDefault}

	if n.dividends == nil {
		n.logger.Warn().Str("symbol", symbol).Msg("No dividend source, assuming default yield")
		return assumed
	}

	payments, err := n.dividends.GetDividendHistory(ctx, symbol)
	if err != nil {
		n.logger.Warn().Err(err).Str("symbol", symbol).Msg("Dividend history lookup failed, assuming default yield")
		return assumed
	}

	last, ok := lastPayment(payments)
	if !ok {
		return models.DividendEstimate{YieldPct: 0, Basis: models.DividendNone}
	}

	if currentPrice <= 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		n.logger.Warn().Str("symbol", symbol).Msg("No usable price for dividend derivation, assuming default yield")
		return assumed
	}

	return models.DividendEstimate{YieldPct: last / currentPrice * 100, Basis: models.DividendDerived}
}

// lastPayment returns the most recent positive payment by date.
func lastPayment(payments []models.DividendPayment) (float64, bool) {
	var found bool
	var latest models.DividendPayment
	for _, p := range payments {
		if p.Amount <= 0 || math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) {
			continue
		}
		if !found || !p.Date.Before(latest.Date) {
			latest = p
			found = true
		}
	}
	return latest.Amount, found
}

// InferCurrency guesses the trading currency from the exchange suffix.
// Symbols without a suffix are treated as US listings.
func InferCurrency(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	dot := strings.LastIndex(s, ".")
	if dot < 0 {
		return "USD"
	}
	if cur, ok := suffixCurrency[s[dot:]]; ok {
		return cur
	}
	return "USD"
}

func classify(raw *models.RawFundamentals, hasPE bool) models.InstrumentType {
	quoteType := ""
	if raw.QuoteType != nil {
		quoteType = strings.ToUpper(strings.TrimSpace(*raw.QuoteType))
	}

	if quoteType == "ETF" {
		return models.InstrumentETF
	}
	if !hasPE && looksLikeFund(raw) {
		return models.InstrumentETF
	}
	if quoteType == "" || quoteType == "EQUITY" {
		return models.InstrumentEquity
	}
	return models.InstrumentOther
}

func looksLikeFund(raw *models.RawFundamentals) bool {
	text := strings.ToUpper(raw.Symbol + " " + raw.ShortName + " " + raw.LongName)
	for _, marker := range fundMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func displayName(raw *models.RawFundamentals) string {
	if raw.LongName != "" {
		return raw.LongName
	}
	if raw.ShortName != "" {
		return raw.ShortName
	}
	return raw.Symbol
}

// finite treats a missing or non-finite ratio as not applicable.
func finite(v *float64) models.Optional[float64] {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return models.None[float64]()
	}
	return models.Some(*v)
}
