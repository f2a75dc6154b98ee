package services

import (
	"context"
	"testing"
	"time"

	"moneta/internal/cache"
	"moneta/internal/core"

	"github.com/shopspring/decimal"
)

type reportFixture struct {
	*fixture
	reports *ReportService
	a, b    core.Wallet
}

// newReportFixture books a small history:
//
//	2024-01  A: +1000 income, -200 expense
//	2024-03  A: -50 expense, transfer 100 A -> B
func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	ctx := context.Background()
	f := newFixture(t, false)

	reports := NewReportService(f.repo, cache.NewLRUCache[any](64, time.Minute))
	reports.now = func() time.Time { return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC) }
	f.ledger.invalidator = reports

	rf := &reportFixture{fixture: f, reports: reports}
	rf.a = f.wallet(t, "A", "0")
	rf.b = f.wallet(t, "B", "0")

	for _, in := range []CreateTransactionInput{
		{WalletID: rf.a.ID, Type: "INCOME", Amount: "1000", Title: "Salary", Date: day(2024, 1, 3)},
		{WalletID: rf.a.ID, Type: "EXPENSE", Amount: "200", Title: "Rent", Date: day(2024, 1, 5)},
		{WalletID: rf.a.ID, Type: "EXPENSE", Amount: "50", Title: "Food", Date: day(2024, 3, 2)},
	} {
		in.UserID = testUser
		if _, err := f.ledger.CreateTransaction(ctx, in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := f.ledger.TransferBetweenWallets(ctx, TransferInput{
		UserID: testUser, SenderWalletID: rf.a.ID, ReceiverWalletID: rf.b.ID, Amount: "100", Date: day(2024, 3, 10),
	}); err != nil {
		t.Fatalf("seed transfer: %v", err)
	}
	return rf
}

func TestGetFilteredTransactions(t *testing.T) {
	ctx := context.Background()
	rf := newReportFixture(t)

	tests := []struct {
		name   string
		filter core.TransactionFilter
		want   int
	}{
		{"current month by default", core.TransactionFilter{}, 3},
		{"explicit january", core.TransactionFilter{Year: 2024, Month: 1}, 2},
		{"whole year", core.TransactionFilter{Period: core.PeriodYear, Year: 2024}, 5},
		{"all types keyword", core.TransactionFilter{Period: core.PeriodAll, Type: "ALL"}, 5},
		{"expenses only", core.TransactionFilter{Period: core.PeriodAll, Type: core.Expense}, 2},
		{"one wallet", core.TransactionFilter{Period: core.PeriodAll, WalletID: rf.b.ID}, 1},
		{"custom range", core.TransactionFilter{
			Period: core.PeriodCustom,
			Start:  time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
			End:    time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		}, 2},
		{"paged", core.TransactionFilter{Period: core.PeriodAll, Limit: 2, Offset: 4}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.UserID = testUser
			rows, err := rf.reports.GetFilteredTransactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("filter: %v", err)
			}
			if len(rows) != tt.want {
				t.Fatalf("rows = %d, want %d", len(rows), tt.want)
			}
		})
	}

	rows, _ := rf.reports.GetFilteredTransactions(ctx, core.TransactionFilter{UserID: testUser, Period: core.PeriodAll})
	for i := 1; i < len(rows); i++ {
		if rows[i].Date.After(rows[i-1].Date) {
			t.Fatal("rows must be ordered newest first")
		}
	}
	if rows[len(rows)-1].WalletName != "A" || rows[len(rows)-1].WalletCurrency != "USD" {
		t.Fatalf("wallet columns missing: %+v", rows[len(rows)-1])
	}

	_, err := rf.reports.GetFilteredTransactions(ctx, core.TransactionFilter{UserID: testUser, Type: "GIFT"})
	assertKind(t, err, core.KindValidation)
}

func TestGetTransactionSummary(t *testing.T) {
	rf := newReportFixture(t)

	sum, err := rf.reports.GetTransactionSummary(context.Background(), core.TransactionFilter{
		UserID: testUser, Period: core.PeriodAll, Limit: 1,
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	assertDec(t, "income", sum.TotalIncome, "1000")
	assertDec(t, "expense", sum.TotalExpense, "250")
	assertDec(t, "transfer", sum.TotalTransfer, "200")
	assertDec(t, "net", sum.NetAmount, "750")
	if sum.TransactionCount != 5 {
		t.Fatalf("count = %d", sum.TransactionCount)
	}
}

func TestGetMonthlySummary(t *testing.T) {
	ctx := context.Background()
	rf := newReportFixture(t)

	jan, err := rf.reports.GetMonthlySummary(ctx, testUser, 2024, 1, "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	assertDec(t, "jan income", jan.TotalIncome, "1000")
	assertDec(t, "jan savings", jan.Savings, "800")
	if jan.WalletCount != 1 || !jan.Materialized {
		t.Fatalf("unexpected %+v", jan)
	}

	mar, _ := rf.reports.GetMonthlySummary(ctx, testUser, 2024, 3, "")
	assertDec(t, "mar opening", mar.OpeningBalance, "800")
	assertDec(t, "mar income", mar.TotalIncome, "100")
	assertDec(t, "mar expense", mar.TotalExpense, "150")
	assertDec(t, "mar closing", mar.ClosingBalance, "750")
	if mar.WalletCount != 2 {
		t.Fatalf("wallets = %d", mar.WalletCount)
	}

	onlyB, _ := rf.reports.GetMonthlySummary(ctx, testUser, 2024, 3, rf.b.ID)
	assertDec(t, "B closing", onlyB.ClosingBalance, "100")

	feb, err := rf.reports.GetMonthlySummary(ctx, testUser, 2024, 2, "")
	if err != nil {
		t.Fatalf("empty month must not fail: %v", err)
	}
	if feb.Materialized || !feb.TotalIncome.IsZero() {
		t.Fatalf("february should be a zero summary, got %+v", feb)
	}

	_, err = rf.reports.GetMonthlySummary(ctx, testUser, 2024, 13, "")
	assertKind(t, err, core.KindValidation)
}

func TestMonthlySummaryCacheInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	rf := newReportFixture(t)

	before, _ := rf.reports.GetMonthlySummary(ctx, testUser, 2024, 1, "")
	if _, err := rf.ledger.CreateTransaction(ctx, CreateTransactionInput{
		UserID: testUser, WalletID: rf.a.ID, Type: "INCOME", Amount: "5", Date: day(2024, 1, 20),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	after, _ := rf.reports.GetMonthlySummary(ctx, testUser, 2024, 1, "")
	if !after.TotalIncome.Equal(before.TotalIncome.Add(decimal.NewFromInt(5))) {
		t.Fatalf("stale cached summary: before %s after %s", before.TotalIncome, after.TotalIncome)
	}
}

func TestGetMonthlyStats(t *testing.T) {
	ctx := context.Background()
	rf := newReportFixture(t)

	stats, err := rf.reports.GetMonthlyStats(ctx, testUser, core.Period{}, core.Period{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats.Months) != 12 {
		t.Fatalf("months = %d, want 12", len(stats.Months))
	}
	if stats.Months[0].Year != 2024 || stats.Months[0].Month != 3 || stats.Months[11].Month != 4 {
		t.Fatalf("range must end at the current month, newest first: %+v", stats.Months[0])
	}
	feb := stats.Months[1]
	if !feb.TotalIncome.IsZero() || feb.WalletCount != 0 {
		t.Fatalf("february must be zero-filled: %+v", feb)
	}
	assertDec(t, "all-time income", stats.AllTime.TotalIncome, "1100")
	assertDec(t, "all-time expense", stats.AllTime.TotalExpense, "350")
	// February had no income, March had 100.
	assertDec(t, "income change", stats.IncomeChange, "100")

	ranged, err := rf.reports.GetMonthlyStats(ctx, testUser, core.Period{Year: 2024, Month: 1}, core.Period{Year: 2024, Month: 2})
	if err != nil {
		t.Fatalf("ranged: %v", err)
	}
	assertDec(t, "income change jan->feb", ranged.IncomeChange, "-100")

	_, err = rf.reports.GetMonthlyStats(ctx, testUser, core.Period{Year: 2024, Month: 5}, core.Period{Year: 2024, Month: 1})
	assertKind(t, err, core.KindValidation)
}

func TestRunningBalances(t *testing.T) {
	ctx := context.Background()
	rf := newReportFixture(t)

	rbs, err := rf.reports.RunningBalances(ctx, testUser, rf.a.ID)
	if err != nil {
		t.Fatalf("running balances: %v", err)
	}
	want := []string{"1000", "800", "750", "650"}
	if len(rbs) != len(want) {
		t.Fatalf("len = %d", len(rbs))
	}
	for i, w := range want {
		assertDec(t, rbs[i].Title, rbs[i].Balance, w)
	}

	drift, err := rf.reports.Drift(ctx, testUser, rf.a.ID)
	if err != nil || !drift.IsZero() {
		t.Fatalf("drift = %s (%v)", drift, err)
	}

	_, err = rf.reports.RunningBalances(ctx, "user-2", rf.a.ID)
	assertKind(t, err, core.KindAuthorization)
}

func TestCurrentMonthListingFollowsTheClock(t *testing.T) {
	ctx := context.Background()
	rf := newReportFixture(t)
	f := core.TransactionFilter{UserID: testUser}

	march, err := rf.reports.GetFilteredTransactions(ctx, f)
	if err != nil || len(march) != 3 {
		t.Fatalf("march rows = %d (%v)", len(march), err)
	}

	rf.reports.now = func() time.Time { return time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC) }
	january, err := rf.reports.GetFilteredTransactions(ctx, f)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(january) != 2 {
		t.Fatalf("january rows = %d, want 2: the cached march listing was served", len(january))
	}
}

func TestCachedDropsLoadRacingAnInvalidation(t *testing.T) {
	lru := cache.NewLRUCache[any](8, time.Minute)
	s := NewReportService(nil, lru)
	key := testUser + "|summary|2024-01|"

	v, err := cached(s, testUser, key, func() (string, error) {
		// A mutation commits while the read is in flight.
		s.InvalidateUser(testUser)
		return "stale", nil
	})
	if err != nil || v != "stale" {
		t.Fatalf("cached = %q, %v", v, err)
	}
	if _, ok := lru.Get(key); ok {
		t.Fatal("a value loaded across an invalidation must not be cached")
	}

	if _, err := cached(s, testUser, key, func() (string, error) { return "fresh", nil }); err != nil {
		t.Fatalf("cached: %v", err)
	}
	if got, ok := lru.Get(key); !ok || got != "fresh" {
		t.Fatalf("cache = %v, %v; want fresh", got, ok)
	}
}
