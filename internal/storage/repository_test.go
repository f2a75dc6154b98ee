package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"moneta/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testWallet(id, user string, created time.Time) core.Wallet {
	return core.Wallet{
		ID: id, UserID: user, Name: "Wallet " + id, Type: core.Bank, Currency: "USD",
		Balance: decimal.NewFromInt(100), InitialBalance: decimal.NewFromInt(100),
		CreatedAt: created, UpdatedAt: created,
	}
}

func TestRebind(t *testing.T) {
	q := New(nil, Postgres)
	if got := q.rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("got %q", got)
	}
	q = New(nil, SQLite)
	if got := q.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite query must be unchanged, got %q", got)
	}
}

func TestParseDialect(t *testing.T) {
	if d, err := ParseDialect(""); err != nil || d != SQLite {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDialect("Postgres"); err != nil || d != Postgres {
		t.Fatalf("got %v, %v", d, err)
	}
	if _, err := ParseDialect("oracle"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWalletRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	q := repo.Queries()

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if err := q.CreateWallet(ctx, testWallet("w2", "u1", base.Add(time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := q.CreateWallet(ctx, testWallet("w1", "u1", base)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := q.CreateWallet(ctx, testWallet("w3", "u2", base)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := q.GetWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(100)) || got.Type != core.Bank || !got.CreatedAt.Equal(base) {
		t.Fatalf("unexpected wallet %+v", got)
	}

	list, err := q.ListWalletsByUser(ctx, "u1")
	if err != nil || len(list) != 2 || list[0].ID != "w1" {
		t.Fatalf("list ordered by creation expected, got %+v (%v)", list, err)
	}
	if n, _ := q.CountWalletsByUser(ctx, "u1"); n != 2 {
		t.Fatalf("count = %d", n)
	}
	users, err := q.ListUserIDs(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("users = %v (%v)", users, err)
	}

	got.Balance = decimal.RequireFromString("12.34")
	got.UpdatedAt = base.Add(2 * time.Hour)
	if err := q.SetWalletBalance(ctx, got); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	got, _ = q.GetWallet(ctx, "w1")
	if got.Balance.String() != "12.34" {
		t.Fatalf("balance = %s", got.Balance)
	}

	if _, err := q.GetWallet(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := q.DeleteWallet(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMonthlyBalanceUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	q := repo.Queries()
	now := time.Now().UTC()
	if err := q.CreateWallet(ctx, testWallet("w1", "u1", now)); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	mb := core.MonthlyBalance{
		ID: "m1", UserID: "u1", WalletID: "w1", Year: 2024, Month: 3,
		OpeningBalance: decimal.NewFromInt(100), ClosingBalance: decimal.NewFromInt(100),
		CreatedAt: now, UpdatedAt: now,
	}
	if err := q.CreateMonthlyBalance(ctx, mb); err != nil {
		t.Fatalf("create: %v", err)
	}
	mb.ID = "m2"
	err := q.CreateMonthlyBalance(ctx, mb)
	if err == nil || !IsUniqueViolation(err) || !IsConflict(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	got, err := q.GetMonthlyBalance(ctx, "u1", "w1", 2024, 3)
	if err != nil || got.ID != "m1" {
		t.Fatalf("got %+v (%v)", got, err)
	}
	if _, err := q.GetMonthlyBalance(ctx, "u1", "w1", 2024, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListMonthlyBalances(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	q := repo.Queries()
	now := time.Now().UTC()
	if err := q.CreateWallet(ctx, testWallet("w1", "u1", now)); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	for i, p := range []core.Period{{2023, 12}, {2024, 1}, {2024, 2}, {2024, 5}} {
		err := q.CreateMonthlyBalance(ctx, core.MonthlyBalance{
			ID: string(rune('a' + i)), UserID: "u1", WalletID: "w1", Year: p.Year, Month: p.Month,
			CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("create %s: %v", p, err)
		}
	}

	after, err := q.ListMonthlyBalancesAfter(ctx, "u1", "w1", 2024, 1)
	if err != nil || len(after) != 2 || after[0].Month != 2 || after[1].Month != 5 {
		t.Fatalf("after = %+v (%v)", after, err)
	}

	ranged, err := q.ListMonthlyBalances(ctx, ListMonthlyBalancesParams{
		UserID: "u1", From: core.Period{Year: 2023, Month: 12}, To: core.Period{Year: 2024, Month: 2},
	})
	if err != nil || len(ranged) != 3 || ranged[0].Period() != (core.Period{Year: 2024, Month: 2}) {
		t.Fatalf("ranged = %+v (%v)", ranged, err)
	}
}

func TestTransactionListingAndTx(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if err := repo.Queries().CreateWallet(ctx, testWallet("w1", "u1", now)); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	mk := func(id string, typ core.TransactionType, day int) core.Transaction {
		d := time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC)
		return core.Transaction{
			ID: id, UserID: "u1", WalletID: "w1", Type: typ, Amount: decimal.NewFromInt(10),
			Title: id, Date: d, CreatedAt: now, UpdatedAt: now,
		}
	}

	err := repo.WithTx(ctx, func(q *Queries) error {
		if err := q.CreateTransaction(ctx, mk("t1", core.Income, 1)); err != nil {
			return err
		}
		return q.CreateTransaction(ctx, mk("t2", core.Expense, 5))
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	boom := errors.New("boom")
	err = repo.WithTx(ctx, func(q *Queries) error {
		if err := q.CreateTransaction(ctx, mk("t3", core.Expense, 6)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := repo.Queries().GetTransaction(ctx, "t3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rolled back row must be gone, got %v", err)
	}

	rows, err := repo.Queries().ListTransactions(ctx, ListTransactionsParams{UserID: "u1"})
	if err != nil || len(rows) != 2 || rows[0].ID != "t2" || rows[0].WalletName != "Wallet w1" {
		t.Fatalf("rows = %+v (%v)", rows, err)
	}
	rows, _ = repo.Queries().ListTransactions(ctx, ListTransactionsParams{UserID: "u1", Type: core.Income})
	if len(rows) != 1 || rows[0].ID != "t1" {
		t.Fatalf("type filter broken: %+v", rows)
	}
	rows, _ = repo.Queries().ListTransactions(ctx, ListTransactionsParams{
		UserID: "u1", Start: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if len(rows) != 1 || rows[0].ID != "t2" {
		t.Fatalf("date filter broken: %+v", rows)
	}

	asc, err := repo.Queries().ListWalletTransactions(ctx, "w1")
	if err != nil || len(asc) != 2 || asc[0].ID != "t1" {
		t.Fatalf("asc = %+v (%v)", asc, err)
	}

	if err := repo.Queries().DeleteWallet(ctx, "w1"); err == nil {
		t.Fatalf("wallet with transactions must not be deletable")
	}
}
