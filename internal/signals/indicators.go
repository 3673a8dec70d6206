// Package signals provides technical indicator calculations
package signals

import (
	"math"

	"github.com/bobmcallan/pulse/internal/models"
)

// TradingDaysPerYear annualizes daily volatility
const TradingDaysPerYear = 252

// SMASeries calculates the rolling Simple Moving Average over closes (oldest
// first). The first period-1 entries are absent.
func SMASeries(closes []float64, period int) []models.Optional[float64] {
	out := make([]models.Optional[float64], len(closes))
	if period <= 0 {
		return out
	}

	sum := 0.0
	for i, c := range closes {
		sum += c
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out[i] = models.Some(sum / float64(period))
		}
	}
	return out
}

// SMA calculates the Simple Moving Average of the trailing period closes
func SMA(closes []float64, period int) models.Optional[float64] {
	if period <= 0 || len(closes) < period {
		return models.None[float64]()
	}

	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return models.Some(sum / float64(period))
}

// RSISeries calculates the Relative Strength Index for every close using
// simple rolling means of gains and losses. Entries with fewer than period
// deltas behind them are absent.
func RSISeries(closes []float64, period int) []models.Optional[float64] {
	out := make([]models.Optional[float64], len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(closes); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i >= period {
			out[i] = models.Some(rsiFromAverages(gainSum/float64(period), lossSum/float64(period)))
		}
	}
	return out
}

// RSI calculates the Relative Strength Index of the latest close
func RSI(closes []float64, period int) models.Optional[float64] {
	if period <= 0 || len(closes) < period+1 {
		return models.None[float64]()
	}

	var gains, losses float64
	window := closes[len(closes)-period-1:]
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	return models.Some(rsiFromAverages(gains/float64(period), losses/float64(period)))
}

// rsiFromAverages applies RS = gain/loss. A window without losses reads 100,
// a window without any movement reads 50.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	// rolling subtraction can leave tiny negative residue
	if avgGain < 1e-12 {
		avgGain = 0
	}
	if avgLoss < 1e-12 {
		avgLoss = 0
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// AnnualizedVolatility calculates the sample standard deviation of
// day-over-day percentage returns, scaled by sqrt(252) and expressed in
// percent. Absent with fewer than two returns.
func AnnualizedVolatility(closes []float64) models.Optional[float64] {
	returns := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) < 2 {
		return models.None[float64]()
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return models.Some(math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear) * 100)
}

// ClassifyTrend compares price with its 50-session average
func ClassifyTrend(currentPrice float64, ma50 models.Optional[float64]) models.TrendDirection {
	avg, ok := ma50.Get()
	if !ok {
		return models.TrendUndefined
	}
	if currentPrice > avg {
		return models.TrendUp
	}
	return models.TrendDown
}

// ClassifyRSI classifies RSI value
func ClassifyRSI(rsi float64) string {
	if rsi >= 70 {
		return "overbought"
	}
	if rsi <= 30 {
		return "oversold"
	}
	return "neutral"
}

// DistanceToSMA calculates percentage distance from current price to SMA
func DistanceToSMA(currentPrice float64, sma models.Optional[float64]) models.Optional[float64] {
	avg, ok := sma.Get()
	if !ok || avg == 0 {
		return models.None[float64]()
	}
	return models.Some(((currentPrice - avg) / avg) * 100)
}
