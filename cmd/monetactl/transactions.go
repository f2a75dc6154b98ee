package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"moneta/internal/backend"
	"moneta/internal/core"
	"moneta/internal/services"

	"github.com/google/subcommands"
)

// dateFlag parses an optional YYYY-MM-DD flag value. Empty means now.
func dateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return &t, nil
}

type addCmd struct {
	wallet, typ, amount, title, desc, date string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record an income or expense" }
func (*addCmd) Usage() string {
	return `monetactl add -wallet <id> -amount <n> [-type EXPENSE] [-title <t>] [-desc <d>] [-d YYYY-MM-DD]

  Records an INCOME or EXPENSE on the wallet.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.wallet, "wallet", "", "Wallet id")
	f.StringVar(&c.typ, "type", string(core.Expense), "INCOME or EXPENSE")
	f.StringVar(&c.amount, "amount", "", "Positive amount with at most two decimals")
	f.StringVar(&c.title, "title", "", "Title")
	f.StringVar(&c.desc, "desc", "", "Description")
	f.StringVar(&c.date, "d", "", "Transaction date (defaults to now)")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, err := dateFlag(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		t, err := res.Ledger.CreateTransaction(ctx, services.CreateTransactionInput{
			UserID:      user,
			WalletID:    c.wallet,
			Type:        c.typ,
			Amount:      c.amount,
			Title:       c.title,
			Description: c.desc,
			Date:        date,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s %s\tbalance %s\n", t.ID, t.Type, core.FormatAmount(t.Amount), core.FormatAmount(t.ClosingBalance))
		return nil
	})
}

type editCmd struct {
	id, amount, title, desc, date string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change a transaction" }
func (*editCmd) Usage() string {
	return `monetactl edit -id <tx> [-amount <n>] [-title <t>] [-desc <d>] [-d YYYY-MM-DD]

  Changes a transaction. Flags left unset keep the stored value.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Transaction id")
	f.StringVar(&c.amount, "amount", "", "New amount")
	f.StringVar(&c.title, "title", "", "New title")
	f.StringVar(&c.desc, "desc", "", "New description")
	f.StringVar(&c.date, "d", "", "New date")
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, err := dateFlag(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	in := services.UpdateTransactionInput{ID: c.id, Amount: c.amount, Date: date}
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "title":
			in.Title = &c.title
		case "desc":
			in.Description = &c.desc
		}
	})
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		in.UserID = user
		t, err := res.Ledger.UpdateTransaction(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s %s\t%s\n", t.ID, t.Type, core.FormatAmount(t.Amount), t.Date.Format("2006-01-02"))
		return nil
	})
}

type deleteCmd struct{ id string }

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a transaction" }
func (*deleteCmd) Usage() string {
	return `monetactl delete -id <tx>

  Deletes a transaction and reverses its effect. Deleting a transfer leg
  removes both legs.
`
}
func (c *deleteCmd) SetFlags(f *flag.FlagSet) { f.StringVar(&c.id, "id", "", "Transaction id") }

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		return res.Ledger.DeleteTransaction(ctx, c.id, user)
	})
}

type transferCmd struct {
	from, to, amount, title, desc, date string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two wallets" }
func (*transferCmd) Usage() string {
	return `monetactl transfer -from <wallet> -to <wallet> -amount <n> [-title <t>] [-d YYYY-MM-DD]

  Moves money between two of the user's wallets.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Sender wallet id")
	f.StringVar(&c.to, "to", "", "Receiver wallet id")
	f.StringVar(&c.amount, "amount", "", "Amount to move")
	f.StringVar(&c.title, "title", "", "Title for both legs")
	f.StringVar(&c.desc, "desc", "", "Description for both legs")
	f.StringVar(&c.date, "d", "", "Transfer date (defaults to now)")
}

func (c *transferCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, err := dateFlag(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		r, err := res.Ledger.TransferBetweenWallets(ctx, services.TransferInput{
			UserID:           user,
			SenderWalletID:   c.from,
			ReceiverWalletID: c.to,
			Amount:           c.amount,
			Title:            c.title,
			Description:      c.desc,
			Date:             date,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s\tOUT\t%s\n%s\tIN\t%s\n", r.Sender.ID, r.Sender.Title, r.Receiver.ID, r.Receiver.Title)
		return nil
	})
}

type listCmd struct {
	wallet, typ, period string
	month               string
	limit               int
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list transactions" }
func (*listCmd) Usage() string {
	return `monetactl list [-m YYYY-MM] [-period month|year|all] [-type EXPENSE] [-wallet <id>] [-n 50]

  Lists transactions newest first with their totals.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.wallet, "wallet", "", "Only this wallet")
	f.StringVar(&c.typ, "type", "", "Only this transaction type")
	f.StringVar(&c.period, "period", string(core.PeriodMonth), "month, year or all")
	f.StringVar(&c.month, "m", "", "Month to list (defaults to the current month)")
	f.IntVar(&c.limit, "n", 50, "Maximum rows")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := monthFlag(c.month)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		f := core.TransactionFilter{
			UserID:   user,
			Type:     core.TransactionType(c.typ),
			WalletID: c.wallet,
			Period:   core.PeriodKind(c.period),
			Year:     p.Year,
			Month:    p.Month,
			Limit:    c.limit,
		}
		rows, err := res.Reports.GetFilteredTransactions(ctx, f)
		if err != nil {
			return err
		}
		sum, err := res.Reports.GetTransactionSummary(ctx, f)
		if err != nil {
			return err
		}
		printMarkdown(renderTransactions(rows, sum))
		return nil
	})
}
