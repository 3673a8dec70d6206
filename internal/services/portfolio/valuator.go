// Package portfolio values configured positions and aggregates them
package portfolio

import (
	"context"
	"fmt"
	"math"

	"github.com/bobmcallan/pulse/internal/models"
	"github.com/bobmcallan/pulse/internal/services/fundamentals"
	"github.com/bobmcallan/pulse/internal/signals"
)

// Valuator computes the valuation of one line item
type Valuator struct {
	computer   *signals.Computer
	normalizer *fundamentals.Normalizer
}

// NewValuator creates a valuator over the indicator computer and the
// fundamentals normalizer.
func NewValuator(computer *signals.Computer, normalizer *fundamentals.Normalizer) *Valuator {
	return &Valuator{
		computer:   computer,
		normalizer: normalizer,
	}
}

// DayChange returns the last two points and the percent change between
// them. A series with fewer than two points has no defined change.
func DayChange(series models.PriceSeries) (last, previous models.PricePoint, changePct float64, err error) {
	n := series.Len()
	if n < 2 {
		return last, previous, 0, &models.InsufficientHistoryError{
			Instrument: series.Instrument,
			Operation:  "change percent",
			Required:   2,
			Available:  n,
		}
	}

	last = series.Points[n-1]
	previous = series.Points[n-2]
	changePct = (last.Close - previous.Close) / previous.Close * 100
	return last, previous, changePct, nil
}

// Valuate produces the valuation of item from its price series, raw
// fundamentals and the rate converting its currency into the target.
func (v *Valuator) Valuate(ctx context.Context, item models.LineItem, series models.PriceSeries, raw *models.RawFundamentals, rate models.RateQuote) (*models.PositionValuation, error) {
	if !item.ValidQuantity() {
		return nil, fmt.Errorf("%s: %w", item.InstrumentID, models.ErrInvalidQuantity)
	}

	last, previous, changePct, err := DayChange(series)
	if err != nil {
		return nil, err
	}

	record, dividend := v.normalizer.Normalize(ctx, raw, last.Close)
	if !(rate.Rate > 0) {
		return nil, &models.UnsupportedCurrencyError{From: record.Currency, To: rate.To}
	}
	if rate.From != "" && rate.From != record.Currency {
		return nil, fmt.Errorf("%s: rate converts %s but instrument trades in %s", item.InstrumentID, rate.From, record.Currency)
	}

	value := last.Close * item.Quantity * rate.Rate
	income := value * dividend.YieldPct / 100
	if !finite(value) || !finite(income) || !finite(changePct) {
		return nil, fmt.Errorf("%s: %w", item.InstrumentID, models.ErrNonFiniteValue)
	}

	return &models.PositionValuation{
		LineItem:                              item,
		PriceNative:                           last.Close,
		PriceDisplay:                          models.NewMoney(last.Close, record.Currency),
		PreviousClose:                         previous.Close,
		ChangePct:                             changePct,
		AsOfDate:                              last.Date,
		Indicators:                            v.computer.Compute(series),
		Fundamentals:                          record,
		Dividend:                              dividend,
		Rate:                                  rate,
		ValueInTargetCurrency:                 value,
		EstimatedAnnualIncomeInTargetCurrency: income,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
