package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/bobmcallan/pulse/internal/app"
	"github.com/bobmcallan/pulse/internal/common"
	"github.com/bobmcallan/pulse/internal/models"
)

// portfolioCmd values the configured portfolio.
type portfolioCmd struct {
	json bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "value the configured portfolio in the target currency" }
func (*portfolioCmd) Usage() string {
	return `pulse portfolio [-json]

  Runs one valuation pass over the [[portfolio]] entries of the config and
  prints each position, the totals and any excluded instruments.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print the summary as JSON")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if !c.json {
		common.PrintBanner(os.Stderr, a.Config, a.Logger)
	}

	if len(a.Config.Portfolio) == 0 {
		fmt.Fprintln(os.Stderr, "No positions configured, add [[portfolio]] entries to the config")
		return subcommands.ExitSuccess
	}

	summary, err := a.PortfolioService.Evaluate(ctx, a.Config.Portfolio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error evaluating portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.json {
		err = writeJSON(os.Stdout, summary)
	} else {
		err = writeSummary(os.Stdout, summary)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// watchlistCmd prints the day change of each watchlist instrument.
type watchlistCmd struct {
	json bool
}

func (*watchlistCmd) Name() string     { return "watchlist" }
func (*watchlistCmd) Synopsis() string { return "show the day change of each watchlist instrument" }
func (*watchlistCmd) Usage() string {
	return `pulse watchlist [-json]

  Prints last close, previous close and change percent for every
  [[watchlist]] entry of the config.
`
}

func (c *watchlistCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print the entries as JSON")
}

func (c *watchlistCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	entries := a.WatchlistService.Watch(ctx, a.Config.Watchlist)

	if c.json {
		err = writeJSON(os.Stdout, entries)
	} else {
		err = writeWatchlist(os.Stdout, entries)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// snapshotCmd prints the full analysis of one instrument.
type snapshotCmd struct {
	json bool
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "show indicators, fundamentals and dividend for one instrument" }
func (*snapshotCmd) Usage() string {
	return `pulse snapshot [-json] <instrument>

  Prints RSI, moving averages, trend, volatility, fundamentals and the
  corrected dividend yield of a single instrument such as PKO.WA.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print the report as JSON")
}

func (c *snapshotCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "snapshot requires exactly one instrument id")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	item := lookupItem(a.Config, f.Arg(0))
	report, err := a.WatchlistService.Snapshot(ctx, item)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analysing %s (%s): %v\n", item.InstrumentID, models.ErrorKind(err), err)
		return subcommands.ExitFailure
	}

	if c.json {
		err = writeJSON(os.Stdout, report)
	} else {
		err = writeReport(os.Stdout, report)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// lookupItem finds the configured display name for id, matching
// case-insensitively against the portfolio then the watchlist.
func lookupItem(config *common.Config, id string) models.WatchItem {
	for _, li := range config.Portfolio {
		if strings.EqualFold(li.InstrumentID, id) {
			return models.WatchItem{InstrumentID: li.InstrumentID, DisplayName: li.DisplayName}
		}
	}
	for _, wi := range config.Watchlist {
		if strings.EqualFold(wi.InstrumentID, id) {
			return wi
		}
	}
	return models.WatchItem{InstrumentID: strings.ToUpper(id), DisplayName: strings.ToUpper(id)}
}

// watchCmd re-runs the portfolio and watchlist views on a cron schedule.
type watchCmd struct {
	schedule string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "refresh portfolio and watchlist on a schedule" }
func (*watchCmd) Usage() string {
	return `pulse watch [-schedule "<cron>"]

  Prints the portfolio and watchlist immediately, then again on every tick
  of the cron schedule until interrupted. The default schedule comes from
  [schedule] cron in the config.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.schedule, "schedule", "", "five-field cron expression or descriptor such as @every 5m")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	schedule := c.schedule
	if schedule == "" {
		schedule = a.Config.Schedule.Cron
	}
	if err := app.ValidateSchedule(schedule); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	common.PrintBanner(os.Stderr, a.Config, a.Logger)

	// each run needs at least one instrument timeout per batch of fetches
	timeout := a.Config.Engine.GetInstrumentTimeout() * 4
	scheduler := app.NewScheduler(func(runCtx context.Context) {
		refresh(runCtx, a)
	}, timeout, a.Logger)

	scheduler.RunNow()
	if err := scheduler.Start(schedule); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	<-ctx.Done()
	scheduler.Stop()
	return subcommands.ExitSuccess
}

// refresh prints one round of the portfolio and watchlist views.
func refresh(ctx context.Context, a *app.App) {
	if len(a.Config.Portfolio) > 0 {
		summary, err := a.PortfolioService.Evaluate(ctx, a.Config.Portfolio)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduled valuation failed")
		} else if err := writeSummary(os.Stdout, summary); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to write summary")
		}
	}

	entries := a.WatchlistService.Watch(ctx, a.Config.Watchlist)
	if err := writeWatchlist(os.Stdout, entries); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to write watchlist")
	}
}

// versionCmd prints version information.
type versionCmd struct{}

func (*versionCmd) Name() string             { return "version" }
func (*versionCmd) Synopsis() string         { return "print version information" }
func (*versionCmd) Usage() string            { return "pulse version\n" }
func (*versionCmd) SetFlags(_ *flag.FlagSet) {}

func (*versionCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	common.LoadVersionFromFile()
	fmt.Println("pulse " + common.GetFullVersion())
	return subcommands.ExitSuccess
}
