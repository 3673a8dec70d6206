package models

// TrendDirection classifies price against the 50-session moving average
type TrendDirection string

const (
	TrendUp        TrendDirection = "UP"
	TrendDown      TrendDirection = "DOWN"
	TrendUndefined TrendDirection = "UNDEFINED" // not enough history for MA50
)

// IndicatorSnapshot holds the technical indicators for one price series.
type IndicatorSnapshot struct {
	CurrentPrice            float64           `json:"current_price"`
	DataPoints              int               `json:"data_points"`
	RSI14                   Optional[float64] `json:"rsi14"`
	RSISignal               string            `json:"rsi_signal,omitempty"` // overbought, oversold, neutral
	MA50                    Optional[float64] `json:"ma50"`
	MA200                   Optional[float64] `json:"ma200"`
	DistanceToMA50Pct       Optional[float64] `json:"distance_to_ma50_pct"`
	Trend                   TrendDirection    `json:"trend"`
	AnnualizedVolatilityPct Optional[float64] `json:"annualized_volatility_pct"`
}
