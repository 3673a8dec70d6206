// Package app wires configuration, logging, the market source and services
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/pulse/internal/common"
	"github.com/bobmcallan/pulse/internal/interfaces"
	"github.com/bobmcallan/pulse/internal/models"
	"github.com/bobmcallan/pulse/internal/services/fundamentals"
	"github.com/bobmcallan/pulse/internal/services/fx"
	"github.com/bobmcallan/pulse/internal/services/portfolio"
	"github.com/bobmcallan/pulse/internal/services/watchlist"
	"github.com/bobmcallan/pulse/internal/signals"
	"github.com/bobmcallan/pulse/internal/sources"
	"github.com/bobmcallan/pulse/internal/sources/filesource"
)

// App holds the initialized source and services shared by every command.
type App struct {
	Config           *common.Config
	Logger           arbor.ILogger
	Source           interfaces.MarketDataSource
	Converter        interfaces.CurrencyConverter
	PortfolioService interfaces.PortfolioService
	WatchlistService interfaces.WatchlistService
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, PULSE_CONFIG,
// pulse.toml next to the binary, then config/pulse.toml.
func ResolveConfigPath(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("PULSE_CONFIG"); env != "" {
		return env
	}
	candidate := filepath.Join(getBinaryDir(), "pulse.toml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return filepath.Join("config", "pulse.toml")
}

// NewApp loads configuration and initializes all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return NewWithConfig(config, logger)
}

// NewWithConfig initializes all services from an already loaded config.
func NewWithConfig(config *common.Config, logger arbor.ILogger) (*App, error) {
	startupStart := time.Now()

	store, err := filesource.NewStore(config.Source.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize market source: %w", err)
	}
	source := sources.NewThrottle(store, config.Source.RateLimit)

	normalizer := fundamentals.NewNormalizer(source, logger,
		fundamentals.WithDividendCeiling(config.Engine.DividendCeiling),
		fundamentals.WithAssumedYield(config.Engine.AssumedDividendYieldPct),
	)
	computer := signals.NewComputer()

	converter := fx.NewConverter(source,
		config.Currency.Supported,
		config.Currency.FallbackRates,
		models.Lookback(config.Engine.FXLookback),
		logger,
	)

	opts := portfolio.Options{
		TargetCurrency:    config.TargetCurrency,
		Lookback:          models.Lookback(config.Engine.PriceLookback),
		InstrumentTimeout: config.Engine.GetInstrumentTimeout(),
		Concurrency:       config.Engine.Concurrency,
	}

	a := &App{
		Config:           config,
		Logger:           logger,
		Source:           source,
		Converter:        converter,
		PortfolioService: portfolio.NewService(source, converter, portfolio.NewValuator(computer, normalizer), opts, logger),
		WatchlistService: watchlist.NewService(source, computer, normalizer, opts, logger),
		StartupTime:      startupStart,
	}

	logger.Debug().
		Str("source", config.Source.Path).
		Int("rate_limit", config.Source.RateLimit).
		Str("startup", time.Since(startupStart).String()).
		Msg("App initialized")

	return a, nil
}
