// Package interfaces defines service contracts for Pulse
package interfaces

import (
	"context"

	"github.com/bobmcallan/pulse/internal/models"
)

// MarketDataSource provides raw market data. Implementations may fail with
// network or unknown-symbol errors; the engine treats any failure to produce
// prices as missing data for that instrument.
type MarketDataSource interface {
	// GetPriceHistory retrieves a raw price table covering the lookback window
	GetPriceHistory(ctx context.Context, instrumentID string, lookback models.Lookback) (*models.PriceTable, error)

	// GetFundamentals retrieves the raw fundamentals record
	GetFundamentals(ctx context.Context, instrumentID string) (*models.RawFundamentals, error)

	// GetDividendHistory retrieves per-share dividend payments, oldest first
	GetDividendHistory(ctx context.Context, instrumentID string) ([]models.DividendPayment, error)

	// GetExchangeRate retrieves a raw price table for an FX pair such as "EURPLN=X"
	GetExchangeRate(ctx context.Context, pair string, lookback models.Lookback) (*models.PriceTable, error)
}

// DividendSource is the slice of MarketDataSource needed for dividend
// re-derivation.
type DividendSource interface {
	GetDividendHistory(ctx context.Context, instrumentID string) ([]models.DividendPayment, error)
}
