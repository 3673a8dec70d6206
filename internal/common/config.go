// Package common provides shared utilities for Pulse
package common

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/pulse/internal/models"
)

// Config holds all configuration for Pulse
type Config struct {
	Environment    string             `toml:"environment"`
	TargetCurrency string             `toml:"target_currency"` // currency totals are reported in
	Portfolio      []models.LineItem  `toml:"portfolio"`
	Watchlist      []models.WatchItem `toml:"watchlist"`
	Currency       CurrencyConfig     `toml:"currency"`
	Engine         EngineConfig       `toml:"engine"`
	Source         SourceConfig       `toml:"source"`
	Schedule       ScheduleConfig     `toml:"schedule"`
	Logging        LoggingConfig      `toml:"logging"`
}

// CurrencyConfig holds the closed set of supported currencies and the
// fallback rates used when a live rate cannot be resolved.
type CurrencyConfig struct {
	Supported     []string           `toml:"supported"`
	FallbackRates map[string]float64 `toml:"fallback_rates"` // "EUR/PLN" = 4.30
}

// EngineConfig holds valuation pass settings
type EngineConfig struct {
	PriceLookback           string  `toml:"price_lookback"`
	FXLookback              string  `toml:"fx_lookback"`
	InstrumentTimeout       string  `toml:"instrument_timeout"`
	Concurrency             int     `toml:"concurrency"`
	DividendCeiling         float64 `toml:"dividend_ceiling"` // fraction, 0.20 = 20%
	AssumedDividendYieldPct float64 `toml:"assumed_dividend_yield_pct"`
}

// GetInstrumentTimeout parses and returns the per-instrument fetch timeout
func (c *EngineConfig) GetInstrumentTimeout() time.Duration {
	d, err := time.ParseDuration(c.InstrumentTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// SourceConfig holds market data source configuration
type SourceConfig struct {
	Path      string `toml:"path"`
	RateLimit int    `toml:"rate_limit"` // requests per second, 0 disables throttling
}

// ScheduleConfig holds the refresh schedule for the watch command
type ScheduleConfig struct {
	Cron string `toml:"cron"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// DefaultWatchlist is used when no watchlist is configured
var DefaultWatchlist = []models.WatchItem{
	{InstrumentID: "GPW.WA", DisplayName: "GPW"},
	{InstrumentID: "PEO.WA", DisplayName: "Bank Pekao"},
	{InstrumentID: "KTY.WA", DisplayName: "Grupa Kety"},
	{InstrumentID: "KRU.WA", DisplayName: "Kruk SA"},
	{InstrumentID: "EUNL.DE", DisplayName: "iShares MSCI World (ETF)"},
	{InstrumentID: "SXR8.DE", DisplayName: "iShares S&P 500 (ETF)"},
}

// DefaultSupportedCurrencies is used when none are configured
var DefaultSupportedCurrencies = []string{"PLN", "EUR", "USD"}

// DefaultFallbackRates are approximate constants. USD/PLN deliberately
// reuses the EUR/PLN figure.
var DefaultFallbackRates = map[string]float64{
	"EUR/PLN": 4.30,
	"USD/PLN": 4.30,
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:    "development",
		TargetCurrency: "PLN",
		Engine: EngineConfig{
			PriceLookback:           "1y",
			FXLookback:              "5d",
			InstrumentTimeout:       "15s",
			Concurrency:             4,
			DividendCeiling:         0.20,
			AssumedDividendYieldPct: 5.0,
		},
		Source: SourceConfig{
			Path:      "data",
			RateLimit: 0,
		},
		Schedule: ScheduleConfig{
			Cron: "*/15 9-17 * * 1-5",
		},
		Logging: LoggingConfig{
			Level:    "warn",
			Outputs:  []string{"console"},
			FilePath: "./logs/pulse.log",
		},
	}
}

// LoadConfig loads configuration from files with .env and environment
// overrides, fills list defaults and validates the result.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	loadDotEnv()
	applyEnvOverrides(config)
	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadDotEnv loads a .env file from the working directory when present.
// Variables already set in the environment win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PULSE_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("PULSE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if tc := os.Getenv("PULSE_TARGET_CURRENCY"); tc != "" {
		config.TargetCurrency = tc
	}

	if path := os.Getenv("PULSE_DATA_PATH"); path != "" {
		config.Source.Path = path
	}

	if rl := os.Getenv("PULSE_RATE_LIMIT"); rl != "" {
		if n, err := strconv.Atoi(rl); err == nil {
			config.Source.RateLimit = n
		}
	}
}

// applyDefaults normalizes codes and fills list settings left empty
func applyDefaults(config *Config) {
	config.TargetCurrency = strings.ToUpper(strings.TrimSpace(config.TargetCurrency))

	if len(config.Watchlist) == 0 {
		config.Watchlist = append([]models.WatchItem(nil), DefaultWatchlist...)
	}

	if len(config.Currency.Supported) == 0 {
		config.Currency.Supported = append([]string(nil), DefaultSupportedCurrencies...)
	}
	config.Currency.Supported = normalizeCodes(append(config.Currency.Supported, config.TargetCurrency))

	rates := make(map[string]float64, len(config.Currency.FallbackRates)+len(DefaultFallbackRates))
	for pair, rate := range DefaultFallbackRates {
		rates[pair] = rate
	}
	for pair, rate := range config.Currency.FallbackRates {
		rates[strings.ToUpper(strings.TrimSpace(pair))] = rate
	}
	config.Currency.FallbackRates = rates

	if config.Engine.Concurrency <= 0 {
		config.Engine.Concurrency = 4
	}
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var problems []string

	if !models.IsKnownCurrency(c.TargetCurrency) {
		problems = append(problems, fmt.Sprintf("target_currency %q is not a known currency", c.TargetCurrency))
	}

	for _, code := range c.Currency.Supported {
		if !models.IsKnownCurrency(code) {
			problems = append(problems, fmt.Sprintf("currency %q is not a known currency", code))
			continue
		}
		if code == c.TargetCurrency {
			continue
		}
		if _, ok := c.FallbackRate(code, c.TargetCurrency); !ok {
			problems = append(problems, fmt.Sprintf("no fallback rate for %s/%s", code, c.TargetCurrency))
		}
	}

	for pair, rate := range c.Currency.FallbackRates {
		if rate <= 0 {
			problems = append(problems, fmt.Sprintf("fallback rate %s must be positive", pair))
		}
		if parts := strings.Split(pair, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			problems = append(problems, fmt.Sprintf("fallback rate key %q must look like EUR/PLN", pair))
		}
	}

	seen := make(map[string]bool, len(c.Portfolio))
	for i, item := range c.Portfolio {
		id := strings.TrimSpace(item.InstrumentID)
		if id == "" {
			problems = append(problems, fmt.Sprintf("portfolio[%d]: id is required", i))
			continue
		}
		if seen[strings.ToUpper(id)] {
			problems = append(problems, fmt.Sprintf("portfolio[%d]: duplicate id %s", i, id))
		}
		seen[strings.ToUpper(id)] = true
		if !item.ValidQuantity() {
			problems = append(problems, fmt.Sprintf("portfolio[%d]: %s quantity must be positive and finite", i, id))
		}
	}

	seen = make(map[string]bool, len(c.Watchlist))
	for i, item := range c.Watchlist {
		id := strings.TrimSpace(item.InstrumentID)
		if id == "" {
			problems = append(problems, fmt.Sprintf("watchlist[%d]: id is required", i))
			continue
		}
		if seen[strings.ToUpper(id)] {
			problems = append(problems, fmt.Sprintf("watchlist[%d]: duplicate id %s", i, id))
		}
		seen[strings.ToUpper(id)] = true
	}

	if err := models.Lookback(c.Engine.PriceLookback).Validate(); err != nil {
		problems = append(problems, fmt.Sprintf("engine.price_lookback: %v", err))
	}
	if err := models.Lookback(c.Engine.FXLookback).Validate(); err != nil {
		problems = append(problems, fmt.Sprintf("engine.fx_lookback: %v", err))
	}
	if c.Engine.DividendCeiling <= 0 {
		problems = append(problems, "engine.dividend_ceiling must be positive")
	}
	if c.Engine.AssumedDividendYieldPct < 0 {
		problems = append(problems, "engine.assumed_dividend_yield_pct must not be negative")
	}
	if c.Source.RateLimit < 0 {
		problems = append(problems, "source.rate_limit must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.New("invalid config: " + strings.Join(problems, "; "))
}

// FallbackRate returns the configured constant converting from into to,
// using the reciprocal of the inverse pair when only that is configured.
func (c *Config) FallbackRate(from, to string) (float64, bool) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if rate, ok := c.Currency.FallbackRates[from+"/"+to]; ok && rate > 0 {
		return rate, true
	}
	if rate, ok := c.Currency.FallbackRates[to+"/"+from]; ok && rate > 0 {
		return 1 / rate, true
	}
	return 0, false
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func normalizeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
