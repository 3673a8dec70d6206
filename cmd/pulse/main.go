// Command pulse values a configured portfolio and watchlist from market data
// on disk and prints the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"

	"github.com/bobmcallan/pulse/internal/app"
)

// as a CLI the process is short lived, so global flags are fine.
var configPath = flag.String("config", "", "Path to the pulse.toml configuration file (default: $PULSE_CONFIG, then ./config/pulse.toml)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&versionCmd{}, "")

	commander.Register(&portfolioCmd{}, "analysis")
	commander.Register(&watchlistCmd{}, "analysis")
	commander.Register(&snapshotCmd{}, "analysis")
	commander.Register(&watchCmd{}, "analysis")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commander.Execute(ctx)
	stop()
	os.Exit(int(code))
}

// openApp initializes the app from the -config flag.
func openApp() (*app.App, error) {
	a, err := app.NewApp(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}
