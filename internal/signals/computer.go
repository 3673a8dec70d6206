package signals

import (
	"github.com/bobmcallan/pulse/internal/models"
)

// Indicator windows
const (
	RSIPeriod   = 14
	MAShort     = 50
	MALong      = 200
	MinRSIDepth = RSIPeriod + 1
)

// Computer computes the indicator snapshot for a price series
type Computer struct{}

// NewComputer creates a new indicator computer
func NewComputer() *Computer {
	return &Computer{}
}

// Compute calculates all indicators from a price series. It is pure: the
// same series always yields the same snapshot, and an empty series yields a
// snapshot with every indicator absent.
func (c *Computer) Compute(series models.PriceSeries) models.IndicatorSnapshot {
	closes := series.Closes()
	snap := models.IndicatorSnapshot{
		DataPoints: len(closes),
		Trend:      models.TrendUndefined,
	}
	if len(closes) == 0 {
		return snap
	}

	currentPrice := closes[len(closes)-1]
	ma50 := SMA(closes, MAShort)

	snap.CurrentPrice = currentPrice
	snap.RSI14 = RSI(closes, RSIPeriod)
	snap.MA50 = ma50
	snap.MA200 = SMA(closes, MALong)
	snap.DistanceToMA50Pct = DistanceToSMA(currentPrice, ma50)
	snap.Trend = ClassifyTrend(currentPrice, ma50)
	snap.AnnualizedVolatilityPct = AnnualizedVolatility(closes)

	if rsi, ok := snap.RSI14.Get(); ok {
		snap.RSISignal = ClassifyRSI(rsi)
	}

	return snap
}
