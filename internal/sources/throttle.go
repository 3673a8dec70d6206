// Package sources provides MarketDataSource implementations and wrappers
package sources

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/pulse/internal/interfaces"
	"github.com/bobmcallan/pulse/internal/models"
)

// Throttle rate-limits every call to the wrapped source.
type Throttle struct {
	next    interfaces.MarketDataSource
	limiter *rate.Limiter
}

// NewThrottle allows perSecond calls per second with a burst of the same
// size. A non-positive rate returns next unwrapped.
func NewThrottle(next interfaces.MarketDataSource, perSecond int) interfaces.MarketDataSource {
	if perSecond <= 0 {
		return next
	}
	return &Throttle{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

func (t *Throttle) wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// GetPriceHistory waits for a token, then delegates
func (t *Throttle) GetPriceHistory(ctx context.Context, instrumentID string, lookback models.Lookback) (*models.PriceTable, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.GetPriceHistory(ctx, instrumentID, lookback)
}

// GetFundamentals waits for a token, then delegates
func (t *Throttle) GetFundamentals(ctx context.Context, instrumentID string) (*models.RawFundamentals, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.GetFundamentals(ctx, instrumentID)
}

// GetDividendHistory waits for a token, then delegates
func (t *Throttle) GetDividendHistory(ctx context.Context, instrumentID string) ([]models.DividendPayment, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.GetDividendHistory(ctx, instrumentID)
}

// GetExchangeRate waits for a token, then delegates
func (t *Throttle) GetExchangeRate(ctx context.Context, pair string, lookback models.Lookback) (*models.PriceTable, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.GetExchangeRate(ctx, pair, lookback)
}

// Ensure Throttle implements MarketDataSource
var _ interfaces.MarketDataSource = (*Throttle)(nil)
