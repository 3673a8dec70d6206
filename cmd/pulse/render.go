package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bobmcallan/pulse/internal/models"
)

const dateLayout = "2006-01-02"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// writeSummary prints positions, totals, rates and exclusions.
func writeSummary(w io.Writer, s *models.PortfolioSummary) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "INSTRUMENT\tNAME\tQTY\tPRICE\tCHG\tRSI\tTREND\tYIELD\tVALUE ("+s.TargetCurrency+")")
	for _, p := range s.Positions {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.LineItem.InstrumentID,
			p.LineItem.DisplayName,
			p.LineItem.Quantity,
			p.PriceDisplay,
			signedPct(p.ChangePct),
			optional(p.Indicators.RSI14, "%.1f"),
			p.Indicators.Trend,
			p.Dividend,
			models.NewMoney(p.ValueInTargetCurrency, s.TargetCurrency),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal value:      %s\n", s.TotalValueDisplay())
	fmt.Fprintf(w, "Estimated income: %s\n", s.TotalIncomeDisplay())
	fmt.Fprintf(w, "Portfolio yield:  %s\n", optional(s.PortfolioYieldPct, "%.2f%%"))

	if len(s.Rates.Quotes) > 0 {
		fmt.Fprintln(w)
		tw = newTable(w)
		fmt.Fprintln(tw, "RATE\tVALUE\tSOURCE")
		for _, code := range s.Rates.Currencies() {
			q := s.Rates.Quotes[code]
			fmt.Fprintf(tw, "%s/%s\t%.4f\t%s\n", q.From, q.To, q.Rate, q.Source)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.Excluded) > 0 {
		fmt.Fprintf(w, "\nExcluded from totals (%d):\n", len(s.Excluded))
		tw = newTable(w)
		for _, ex := range s.Excluded {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", ex.InstrumentID, ex.Kind, ex.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\nAs of %s\n", s.AsOf.Format("2006-01-02 15:04"))
	return err
}

// writeWatchlist prints one row per entry; failed entries show their kind.
func writeWatchlist(w io.Writer, entries []models.WatchEntry) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "INSTRUMENT\tNAME\tPRICE\tPREV\tCHG\tDATE")
	for _, e := range entries {
		if e.Kind != "" {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t%s\t-\n", e.Item.InstrumentID, e.Item.DisplayName, e.Kind)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			e.Item.InstrumentID,
			e.Item.DisplayName,
			e.Price,
			e.PreviousClose,
			signedPct(e.ChangePct),
			e.AsOfDate.Format(dateLayout),
		)
	}
	return tw.Flush()
}

// writeReport prints the analysis of one instrument as key/value lines.
func writeReport(w io.Writer, r *models.InstrumentReport) error {
	ind := r.Indicators
	f := r.Fundamentals

	name := f.Name
	if name == "" {
		name = r.Item.DisplayName
	}
	currency := f.Currency
	if f.CurrencyInferred {
		currency += " (inferred)"
	}

	rsi := optional(ind.RSI14, "%.1f")
	if ind.RSISignal != "" {
		rsi += " " + ind.RSISignal
	}

	tw := newTable(w)
	rows := [][2]string{
		{"Instrument", r.Item.InstrumentID},
		{"Name", name},
		{"Type", string(f.InstrumentType)},
		{"Currency", currency},
		{"Price", r.Price.String()},
		{"Data points", fmt.Sprint(ind.DataPoints)},
		{"RSI(14)", rsi},
		{"MA50", optional(ind.MA50, "%.2f")},
		{"MA200", optional(ind.MA200, "%.2f")},
		{"vs MA50", optional(ind.DistanceToMA50Pct, "%+.2f%%")},
		{"Trend", string(ind.Trend)},
		{"Volatility", optional(ind.AnnualizedVolatilityPct, "%.2f%%")},
		{"P/E", optional(f.TrailingPE, "%.2f")},
		{"P/B", optional(f.PriceToBook, "%.2f")},
		{"Analysts", optional(f.AnalystRecommendation, "%s")},
		{"Dividend", r.Dividend.String()},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func optional[T any](o models.Optional[T], format string) string {
	v, ok := o.Get()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

func signedPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}
