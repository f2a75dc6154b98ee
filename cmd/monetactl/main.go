// Command monetactl manages the ledger from the terminal. It talks to the
// configured store directly, so events and cache invalidation behave as in
// the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"moneta/internal/backend"
	"moneta/internal/cli"
	"moneta/internal/config"
	applog "moneta/internal/log"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

var (
	userFlag = flag.String("user", "", "User id owning the ledger (default $MONETA_USER)")
	rawFlag  = flag.Bool("raw", false, "Print plain markdown instead of rendering it")
)

func main() {
	cli.LoadEnvFile()
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&walletsCmd{}, "wallets")
	commander.Register(&walletCreateCmd{}, "wallets")
	commander.Register(&walletDeleteCmd{}, "wallets")
	commander.Register(&historyCmd{}, "wallets")

	commander.Register(&addCmd{}, "transactions")
	commander.Register(&editCmd{}, "transactions")
	commander.Register(&deleteCmd{}, "transactions")
	commander.Register(&transferCmd{}, "transactions")
	commander.Register(&listCmd{}, "transactions")

	commander.Register(&summaryCmd{}, "reports")
	commander.Register(&statsCmd{}, "reports")
	commander.Register(&rolloverCmd{}, "maintenance")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openLedger loads the configuration and wires the backend. Logs go to
// stderr so they never mix with command output.
func openLedger(ctx context.Context) (*backend.BackendResult, error) {
	level := applog.ParseLevel(envOr("LOG_LEVEL", "warn"))
	logger := applog.New(applog.Config{
		Component: applog.ComponentCLI,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cli.InitBackend(ctx, logger.Logger, cfg)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// requireUser returns the -user flag or reports a usage error.
func requireUser() (string, bool) {
	u := strings.TrimSpace(*userFlag)
	if u == "" {
		u = strings.TrimSpace(os.Getenv("MONETA_USER"))
	}
	if u == "" {
		fmt.Fprintln(os.Stderr, "Error: -user or MONETA_USER is required")
		return "", false
	}
	return u, true
}

// withLedger runs fn against an open backend and maps failures to exit
// statuses.
func withLedger(ctx context.Context, fn func(context.Context, string, *backend.BackendResult) error) subcommands.ExitStatus {
	user, ok := requireUser()
	if !ok {
		return subcommands.ExitUsageError
	}
	res, err := openLedger(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cleanup failed: %v\n", err)
		}
	}()

	if err := fn(ctx, user, res); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printMarkdown(md string) {
	writeMarkdown(os.Stdout, md, *rawFlag)
}

func writeMarkdown(w io.Writer, md string, raw bool) {
	if raw {
		fmt.Fprint(w, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprint(w, md)
}
