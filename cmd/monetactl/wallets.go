package main

import (
	"context"
	"flag"
	"fmt"

	"moneta/internal/backend"
	"moneta/internal/services"

	"github.com/google/subcommands"
)

type walletsCmd struct{}

func (*walletsCmd) Name() string     { return "wallets" }
func (*walletsCmd) Synopsis() string { return "list wallets with their balances" }
func (*walletsCmd) Usage() string {
	return `monetactl [-user <id>] wallets

  Lists the user's wallets, oldest first.
`
}
func (*walletsCmd) SetFlags(*flag.FlagSet) {}

func (*walletsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		wallets, err := res.Ledger.ListWallets(ctx, user)
		if err != nil {
			return err
		}
		printMarkdown(renderWallets(wallets))
		return nil
	})
}

type walletCreateCmd struct {
	name, typ, currency, balance string
	primary                      bool
}

func (*walletCreateCmd) Name() string     { return "wallet-create" }
func (*walletCreateCmd) Synopsis() string { return "create a wallet" }
func (*walletCreateCmd) Usage() string {
	return `monetactl wallet-create -name <name> [-type bank] [-currency USD] [-balance 0]
monetactl wallet-create -primary

  Creates a wallet. With -primary, returns the user's primary wallet,
  creating it when the user has none.
`
}

func (c *walletCreateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Wallet name")
	f.StringVar(&c.typ, "type", "bank", "Wallet type (cash, card, bank, digital)")
	f.StringVar(&c.currency, "currency", "", "ISO 4217 currency code (defaults to DEFAULT_CURRENCY)")
	f.StringVar(&c.balance, "balance", "0", "Initial balance")
	f.BoolVar(&c.primary, "primary", false, "Ensure the primary wallet instead")
}

func (c *walletCreateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		if c.primary {
			w, err := res.Ledger.EnsurePrimaryWallet(ctx, user)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", w.ID, w.Name)
			return nil
		}
		w, err := res.Ledger.CreateWallet(ctx, services.CreateWalletInput{
			UserID:         user,
			Name:           c.name,
			Type:           c.typ,
			Currency:       c.currency,
			InitialBalance: c.balance,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", w.ID, w.Name)
		return nil
	})
}

type walletDeleteCmd struct{ id string }

func (*walletDeleteCmd) Name() string     { return "wallet-delete" }
func (*walletDeleteCmd) Synopsis() string { return "delete an empty wallet" }
func (*walletDeleteCmd) Usage() string {
	return `monetactl wallet-delete -id <wallet>

  Deletes a wallet without transactions. The last wallet cannot be deleted.
`
}
func (c *walletDeleteCmd) SetFlags(f *flag.FlagSet) { f.StringVar(&c.id, "id", "", "Wallet id") }

func (c *walletDeleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		return res.Ledger.DeleteWallet(ctx, c.id, user)
	})
}

type historyCmd struct{ wallet string }

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show a wallet's transactions with running balances" }
func (*historyCmd) Usage() string {
	return `monetactl history -wallet <id>

  Lists the wallet's transactions oldest first with the balance after each,
  then checks the stored balance against the history.
`
}
func (c *historyCmd) SetFlags(f *flag.FlagSet) { f.StringVar(&c.wallet, "wallet", "", "Wallet id") }

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withLedger(ctx, func(ctx context.Context, user string, res *backend.BackendResult) error {
		rbs, err := res.Reports.RunningBalances(ctx, user, c.wallet)
		if err != nil {
			return err
		}
		drift, err := res.Reports.Drift(ctx, user, c.wallet)
		if err != nil {
			return err
		}
		printMarkdown(renderHistory(rbs, drift))
		return nil
	})
}
