package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner writes the startup banner to w and logs the effective settings.
func PrintBanner(w io.Writer, config *Config, logger arbor.ILogger) {
	version := GetVersion()
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 56) + banner.ColorReset

	art := []string{
		` 8888888b.  888     888 888       .d8888b.  8888888888`,
		` 888   Y88b 888     888 888      d88P  Y88b 888`,
		` 888    888 888     888 888      Y88b.      888`,
		` 888   d88P 888     888 888       "Y888b.   8888888`,
		` 8888888P"  888     888 888          "Y88b. 888`,
		` 888        888     888 888            "888 888`,
		` 888        Y88b. .d88P 888      Y88b  d88P 888`,
		` 888         "Y88888P"  88888888  "Y8888P"  8888888888`,
	}

	fmt.Fprintf(w, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(w, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s  Portfolio Analytics & Valuation%s\n\n%s\n\n", textColor, banner.ColorReset, hr)

	kvLines := [][2]string{
		{"Version", GetFullVersion()},
		{"Environment", config.Environment},
		{"Target", config.TargetCurrency},
		{"Currencies", strings.Join(config.Currency.Supported, ", ")},
		{"Data", config.Source.Path},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(w, "%s  %-12s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s\n\n", hr)

	logger.Info().
		Str("version", version).
		Str("environment", config.Environment).
		Str("target_currency", config.TargetCurrency).
		Int("positions", len(config.Portfolio)).
		Int("watchlist", len(config.Watchlist)).
		Msg("Pulse started")
}
