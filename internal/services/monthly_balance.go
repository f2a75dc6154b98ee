package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneta/internal/core"
	"moneta/internal/storage"

	"github.com/shopspring/decimal"
)

// EnsureMonthlyBalance returns the bucket for (user, wallet, year, month),
// materializing it when absent. A new bucket opens at the previous month's
// closing balance, or at the wallet's current balance when the previous
// month has no row. It never walks further back than one month.
//
// A lost insert race surfaces as a conflict error; the caller's scope must
// roll back and retry.
func EnsureMonthlyBalance(ctx context.Context, q *storage.Queries, userID, walletID string, year, month int) (core.MonthlyBalance, error) {
	return ensureMonthlyBalance(ctx, q, userID, walletID, year, month, false)
}

// ensureBucket is EnsureMonthlyBalance with the ledger's chain mode.
func (l *Ledger) ensureBucket(ctx context.Context, q *storage.Queries, userID, walletID string, p core.Period) (core.MonthlyBalance, error) {
	return ensureMonthlyBalance(ctx, q, userID, walletID, p.Year, p.Month, l.propagate)
}

// ensureMonthlyBalance materializes the bucket. With chained set, a bucket
// that has no previous row but precedes existing rows opens at the
// opening of the earliest later row, since nothing was booked in between.
func ensureMonthlyBalance(ctx context.Context, q *storage.Queries, userID, walletID string, year, month int, chained bool) (core.MonthlyBalance, error) {
	const op = "ensure monthly balance"

	p := core.Period{Year: year, Month: month}
	if !p.Valid() {
		return core.MonthlyBalance{}, core.Errorf(core.KindValidation, op, "invalid period %d-%d", year, month)
	}

	existing, err := q.GetMonthlyBalance(ctx, userID, walletID, year, month)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return core.MonthlyBalance{}, fmt.Errorf("get monthly balance: %w", err)
	}

	opening, err := openingBalance(ctx, q, userID, walletID, p, chained)
	if err != nil {
		return core.MonthlyBalance{}, err
	}

	now := time.Now().UTC()
	mb := core.MonthlyBalance{
		ID:             newID(),
		UserID:         userID,
		WalletID:       walletID,
		Year:           year,
		Month:          month,
		OpeningBalance: opening,
		ClosingBalance: opening,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := q.CreateMonthlyBalance(ctx, mb); err != nil {
		if storage.IsUniqueViolation(err) {
			return core.MonthlyBalance{}, &core.Error{Kind: core.KindConflict, Op: op, Msg: "monthly balance created concurrently", Err: err}
		}
		return core.MonthlyBalance{}, fmt.Errorf("create monthly balance: %w", err)
	}

	slog.DebugContext(ctx, "Materialized monthly balance",
		"wallet_id", walletID,
		"period", p.String(),
		"opening_balance", opening.String())

	return mb, nil
}

func openingBalance(ctx context.Context, q *storage.Queries, userID, walletID string, p core.Period, chained bool) (decimal.Decimal, error) {
	prev := p.Prev()
	prevRow, err := q.GetMonthlyBalance(ctx, userID, walletID, prev.Year, prev.Month)
	if err == nil {
		return prevRow.ClosingBalance, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return decimal.Decimal{}, fmt.Errorf("get previous monthly balance: %w", err)
	}

	if chained {
		later, err := q.ListMonthlyBalancesAfter(ctx, userID, walletID, p.Year, p.Month)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("list later monthly balances: %w", err)
		}
		if len(later) > 0 {
			return later[0].OpeningBalance, nil
		}
	}

	w, err := q.GetWallet(ctx, walletID)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Decimal{}, core.E(core.KindNotFound, "ensure monthly balance", "wallet not found")
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get wallet: %w", err)
	}
	return w.Balance, nil
}

// OpenMonth ensures the bucket of (year, month) for every wallet of the
// user. Each wallet is handled in its own transaction.
func (l *Ledger) OpenMonth(ctx context.Context, userID string, year, month int) (int, error) {
	const op = "open month"

	wallets, err := l.store.Queries().ListWalletsByUser(ctx, userID)
	if err != nil {
		return 0, core.Wrap(core.KindStorage, op, fmt.Errorf("list wallets: %w", err))
	}

	opened := 0
	for _, w := range wallets {
		err := l.atomically(ctx, op, func(q *storage.Queries) error {
			_, err := l.ensureBucket(ctx, q, userID, w.ID, core.Period{Year: year, Month: month})
			return err
		})
		if err != nil {
			return opened, err
		}
		opened++
	}

	slog.InfoContext(ctx, "Opened month for user",
		"user_id", userID,
		"period", core.Period{Year: year, Month: month}.String(),
		"wallets", opened)

	return opened, nil
}

// OpenMonthForAll runs OpenMonth for every user that owns a wallet.
// Failures are logged per user and the first one is returned.
func (l *Ledger) OpenMonthForAll(ctx context.Context, year, month int) error {
	users, err := l.store.Queries().ListUserIDs(ctx)
	if err != nil {
		return core.Wrap(core.KindStorage, "open month", fmt.Errorf("list users: %w", err))
	}

	var first error
	for _, u := range users {
		if _, err := l.OpenMonth(ctx, u, year, month); err != nil {
			slog.ErrorContext(ctx, "Failed to open month", "user_id", u, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
