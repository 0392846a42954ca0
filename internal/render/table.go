package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mtlprog/darkbear/internal/domain"
)

// Options controls terminal output.
type Options struct {
	Currency string
	Private  bool
}

func (o Options) amount(f func() string) string {
	if o.Private {
		return Hidden
	}
	return f()
}

// Positions writes one row per open position.
func Positions(w io.Writer, positions []domain.Position, opts Options) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SYMBOL\tCLASS\tQTY\tAVG PRICE\tPRICE\tVALUE\tP/L\tP/L %\tALLOC %\t")
	for _, p := range positions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.Symbol,
			p.AssetClass,
			opts.amount(p.Quantity.String),
			opts.amount(func() string { return Money(p.AverageBuyPrice, opts.Currency) }),
			Money(p.CurrentPrice, opts.Currency),
			opts.amount(func() string { return Money(p.MarketValue, opts.Currency) }),
			opts.amount(func() string { return SignedMoney(p.UnrealizedPL, opts.Currency) }),
			Percent(p.UnrealizedPLPercent),
			p.AllocationPercent.StringFixed(2),
		)
	}
	return tw.Flush()
}

// Stats writes the totals followed by the allocation and performance tables.
func Stats(w io.Writer, val domain.PortfolioValuation, opts Options) error {
	s := val.Stats
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total value\t%s\n", opts.amount(func() string { return Money(s.TotalValue, opts.Currency) }))
	fmt.Fprintf(tw, "Total invested\t%s\n", opts.amount(func() string { return Money(s.TotalInvested, opts.Currency) }))
	fmt.Fprintf(tw, "All-time P/L\t%s\t%s\n", opts.amount(func() string { return SignedMoney(s.AllTimePL, opts.Currency) }), Percent(s.AllTimePLPercent))
	fmt.Fprintf(tw, "Today P/L\t%s\t%s\n", opts.amount(func() string { return SignedMoney(s.TodayPL, opts.Currency) }), Percent(s.TodayPLPercent))
	if val.Analytics.Concentration != "" {
		fmt.Fprintf(tw, "Concentration\t%s\n", val.Analytics.Concentration)
	}
	fmt.Fprintln(tw)
	for _, a := range val.Analytics.AllocationByClass {
		fmt.Fprintf(tw, "%s\t%s%%\n", a.AssetClass, a.Percent.StringFixed(2))
	}
	if len(val.Analytics.Performance) > 0 {
		fmt.Fprintln(tw)
		for _, p := range val.Analytics.Performance {
			fmt.Fprintf(tw, "%s\t%s\n", p.Symbol, Percent(p.Percent))
		}
	}
	return tw.Flush()
}

// Warnings writes each warning on its own line.
func Warnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}
