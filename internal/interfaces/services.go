package interfaces

import (
	"context"

	"github.com/bobmcallan/pulse/internal/models"
)

// PortfolioService values the configured portfolio
type PortfolioService interface {
	// Evaluate runs one valuation pass over the line items. Per-item
	// failures are reported in the summary, never returned as an error.
	Evaluate(ctx context.Context, items []models.LineItem) (*models.PortfolioSummary, error)
}

// WatchlistService covers instruments held without quantities
type WatchlistService interface {
	// Watch returns the day change for each instrument
	Watch(ctx context.Context, items []models.WatchItem) []models.WatchEntry

	// Snapshot returns indicators, fundamentals and dividend for one instrument
	Snapshot(ctx context.Context, item models.WatchItem) (*models.InstrumentReport, error)
}

// CurrencyConverter resolves exchange rates into a target currency
type CurrencyConverter interface {
	// Rate returns the multiplier converting from into to
	Rate(ctx context.Context, from, to string) (models.RateQuote, error)

	// ResolveRates resolves every currency into target once. Currencies
	// that cannot be converted are left out of the table.
	ResolveRates(ctx context.Context, currencies []string, target string) models.RateTable
}
