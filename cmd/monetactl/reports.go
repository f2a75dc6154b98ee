package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"moneta/internal/backend"
	"moneta/internal/core"
	"moneta/internal/worker"

	"github.com/google/subcommands"
)

// monthFlag parses an optional YYYY-MM flag value into a Period. Empty
// gives the zero Period.
func monthFlag(s string) (core.Period, error) {
	if s == "" {
		return core.Period{}, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return core.Period{}, fmt.Errorf("invalid month %q: use YYYY-MM", s)
	}
	return core.PeriodOf(t), nil
}

type summaryCmd struct {
	month, wallet string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the monthly summary" }
func (*summaryCmd) Usage() string {
	return `monetactl summary [-m YYYY-MM] [-wallet <id>]

  Displays opening, income, expense and closing for a month, across
  wallets or for one wallet.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "m", "", "Month (defaults to the current month)")
	f.StringVar(&c.wallet, "wallet", "", "Only this wallet")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := monthFlag(c.month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if !p.Valid() {
		p = core.PeriodOf(time.Now())
	}
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		sum, err := res.Reports.GetMonthlySummary(ctx, user, p.Year, p.Month, c.wallet)
		if err != nil {
			return err
		}
		printMarkdown(renderSummary(sum))
		return nil
	})
}

type statsCmd struct {
	from, to string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "display month-by-month statistics" }
func (*statsCmd) Usage() string {
	return `monetactl stats [-from YYYY-MM] [-to YYYY-MM]

  Displays totals for every month of the range, newest first. The range
  defaults to the twelve months ending this month.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First month")
	f.StringVar(&c.to, "to", "", "Last month")
}

func (c *statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, err := monthFlag(c.from)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	to, err := monthFlag(c.to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		stats, err := res.Reports.GetMonthlyStats(ctx, user, from, to)
		if err != nil {
			return err
		}
		printMarkdown(renderStats(stats))
		return nil
	})
}

type rolloverCmd struct{}

func (*rolloverCmd) Name() string     { return "rollover" }
func (*rolloverCmd) Synopsis() string { return "open the current month for every wallet" }
func (*rolloverCmd) Usage() string {
	return `monetactl rollover

  Materializes the current UTC month for every wallet of every user, as
  the worker does on its schedule. Running it twice is harmless.
`
}
func (*rolloverCmd) SetFlags(*flag.FlagSet) {}

func (*rolloverCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	res, err := openLedger(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer res.Cleanup()

	if err := worker.NewRollover(res.Ledger).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
