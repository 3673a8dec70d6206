// Package fx resolves exchange rates with fallback constants
package fx

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/pulse/internal/interfaces"
	"github.com/bobmcallan/pulse/internal/models"
	"github.com/bobmcallan/pulse/internal/services/pricetable"
)

// Converter implements CurrencyConverter over a market data source. Rates are
// read from the source's FX pair tables; a supported pair that cannot be read
// resolves to its fallback constant.
type Converter struct {
	source    interfaces.MarketDataSource
	supported map[string]bool
	fallbacks map[string]float64 // "EUR/PLN" -> 4.30
	lookback  models.Lookback
	logger    arbor.ILogger
}

// NewConverter creates a converter for the closed set of supported codes.
// fallbacks is keyed "FROM/TO"; the reciprocal serves the inverse pair.
func NewConverter(source interfaces.MarketDataSource, supported []string, fallbacks map[string]float64, lookback models.Lookback, logger arbor.ILogger) *Converter {
	c := &Converter{
		source:    source,
		supported: make(map[string]bool, len(supported)),
		fallbacks: make(map[string]float64, len(fallbacks)),
		lookback:  lookback,
		logger:    logger,
	}
	for _, code := range supported {
		c.supported[normalize(code)] = true
	}
	for pair, rate := range fallbacks {
		c.fallbacks[strings.ToUpper(strings.TrimSpace(pair))] = rate
	}
	return c
}

// PairSymbol returns the source symbol for an FX pair, e.g. "EURPLN=X".
func PairSymbol(from, to string) string {
	return normalize(from) + normalize(to) + "=X"
}

// Rate returns the multiplier converting from into to.
func (c *Converter) Rate(ctx context.Context, from, to string) (models.RateQuote, error) {
	from, to = normalize(from), normalize(to)
	if !c.supported[from] || !c.supported[to] {
		return models.RateQuote{}, &models.UnsupportedCurrencyError{From: from, To: to}
	}

	if from == to {
		return models.RateQuote{From: from, To: to, Rate: 1, Source: models.RateIdentity}, nil
	}

	fallback, hasFallback := c.fallback(from, to)

	rate, err := c.live(ctx, from, to)
	if err == nil {
		return models.RateQuote{From: from, To: to, Rate: rate, Source: models.RateLive}, nil
	}

	if !hasFallback {
		c.logger.Warn().Err(err).Str("pair", from+"/"+to).Msg("No live rate and no fallback")
		return models.RateQuote{}, &models.UnsupportedCurrencyError{From: from, To: to}
	}

	c.logger.Warn().
		Err(err).
		Str("pair", from+"/"+to).
		Str("fallback", fmt.Sprintf("%.4f", fallback)).
		Msg("Live rate unavailable, using fallback")

	return models.RateQuote{From: from, To: to, Rate: fallback, Source: models.RateFallback}, nil
}

// ResolveRates resolves every currency into target once. Currencies that
// cannot be converted are left out of the table.
func (c *Converter) ResolveRates(ctx context.Context, currencies []string, target string) models.RateTable {
	target = normalize(target)
	table := models.RateTable{Target: target, Quotes: make(map[string]models.RateQuote)}

	codes := make([]string, 0, len(currencies))
	seen := make(map[string]bool, len(currencies))
	for _, code := range currencies {
		code = normalize(code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		quote, err := c.Rate(ctx, code, target)
		if err != nil {
			c.logger.Warn().Err(err).Str("currency", code).Str("target", target).Msg("Currency left out of rate table")
			continue
		}
		table.Quotes[code] = quote
	}

	return table
}

// live reads the direct pair, then the inverse pair.
func (c *Converter) live(ctx context.Context, from, to string) (float64, error) {
	if c.source == nil {
		return 0, fmt.Errorf("no market data source")
	}

	rate, err := c.lastClose(ctx, PairSymbol(from, to))
	if err == nil {
		return rate, nil
	}

	inverse, invErr := c.lastClose(ctx, PairSymbol(to, from))
	if invErr == nil {
		return 1 / inverse, nil
	}

	return 0, fmt.Errorf("%s: %w", PairSymbol(from, to), err)
}

func (c *Converter) lastClose(ctx context.Context, pair string) (float64, error) {
	table, err := c.source.GetExchangeRate(ctx, pair, c.lookback)
	if err != nil {
		return 0, err
	}
	return pricetable.LastClose(table, pair)
}

func (c *Converter) fallback(from, to string) (float64, bool) {
	if rate, ok := c.fallbacks[from+"/"+to]; ok && rate > 0 {
		return rate, true
	}
	if rate, ok := c.fallbacks[to+"/"+from]; ok && rate > 0 {
		return 1 / rate, true
	}
	return 0, false
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Ensure Converter implements CurrencyConverter
var _ interfaces.CurrencyConverter = (*Converter)(nil)
