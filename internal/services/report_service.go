package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"moneta/internal/cache"
	"moneta/internal/core"
	"moneta/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultStatsMonths = 12

// Reader is the read side of the store.
type Reader interface {
	Queries() *storage.Queries
}

// ReportService answers the aggregate reads. It never writes. Missing
// monthly balances count as zero. On failure every method returns a
// zeroed result together with the error.
type ReportService struct {
	store Reader
	cache cache.Cache[any]
	now   func() time.Time

	// generations counts invalidations per user. A load only lands in the
	// cache when no invalidation happened while it ran.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewReportService builds the reader. A nil cache disables caching.
func NewReportService(store Reader, c cache.Cache[any]) *ReportService {
	return &ReportService{store: store, cache: c, now: time.Now, generations: make(map[string]uint64)}
}

// InvalidateUser drops every cached read of the user.
func (s *ReportService) InvalidateUser(userID string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()
	if n := s.cache.DeletePrefix(userID + "|"); n > 0 {
		slog.Debug("Report cache invalidated", "user_id", userID, "entries", n)
	}
}

func (s *ReportService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// cached serves key from the cache or loads and stores it. Keys must start
// with userID + "|".
func cached[T any](s *ReportService, userID, key string, load func() (T, error)) (T, error) {
	if s.cache == nil {
		return load()
	}
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	gen := s.generation(userID)
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	s.mu.Lock()
	if s.generations[userID] == gen {
		s.cache.Set(key, v)
	}
	s.mu.Unlock()
	return v, nil
}

// listKey identifies a listing by its resolved parameters, so a filter on
// the current month changes key when the month does.
func listKey(p storage.ListTransactionsParams) string {
	return fmt.Sprintf("%s|tx|%s|%s|%d|%d|%d|%d", p.UserID, p.Type, p.WalletID,
		p.Start.UnixNano(), p.End.UnixNano(), p.Limit, p.Offset)
}

func (s *ReportService) listParams(f core.TransactionFilter) (storage.ListTransactionsParams, error) {
	p := storage.ListTransactionsParams{
		UserID:   f.UserID,
		WalletID: f.WalletID,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
	if t := strings.TrimSpace(string(f.Type)); t != "" && !strings.EqualFold(t, "ALL") {
		typ, ok := core.ParseTransactionType(t)
		if !ok {
			return p, core.Errorf(core.KindValidation, "filter transactions", "invalid transaction type %q", t)
		}
		p.Type = typ
	}
	if start, end, ok := f.Range(s.now()); ok {
		p.Start, p.End = start, end
	}
	return p, nil
}

// GetFilteredTransactions lists the user's transactions newest first.
func (s *ReportService) GetFilteredTransactions(ctx context.Context, f core.TransactionFilter) ([]core.TransactionRow, error) {
	const op = "filter transactions"

	params, err := s.listParams(f)
	if err != nil {
		return []core.TransactionRow{}, err
	}
	rows, err := cached(s, f.UserID, listKey(params), func() ([]core.TransactionRow, error) {
		return s.store.Queries().ListTransactions(ctx, params)
	})
	if err != nil {
		return []core.TransactionRow{}, core.Wrap(core.KindStorage, op, err)
	}
	if rows == nil {
		rows = []core.TransactionRow{}
	}
	return rows, nil
}

// GetTransactionSummary totals the filtered transactions by type. Limit
// and offset are ignored.
func (s *ReportService) GetTransactionSummary(ctx context.Context, f core.TransactionFilter) (core.TransactionSummary, error) {
	f.Limit, f.Offset = 0, 0
	rows, err := s.GetFilteredTransactions(ctx, f)
	if err != nil {
		return core.TransactionSummary{}, err
	}
	return summarize(rows), nil
}

func summarize(rows []core.TransactionRow) core.TransactionSummary {
	var sum core.TransactionSummary
	for _, r := range rows {
		switch r.Type {
		case core.Income:
			sum.TotalIncome = sum.TotalIncome.Add(r.Amount)
		case core.Expense:
			sum.TotalExpense = sum.TotalExpense.Add(r.Amount)
		case core.Transfer:
			sum.TotalTransfer = sum.TotalTransfer.Add(r.Amount)
		case core.Adjustment:
			sum.TotalAdjustment = sum.TotalAdjustment.Add(r.Amount)
		}
	}
	sum.NetAmount = sum.TotalIncome.Sub(sum.TotalExpense)
	sum.TransactionCount = len(rows)
	return sum
}

// GetMonthlySummary sums the month's buckets across the user's wallets, or
// for one wallet when walletID is set.
func (s *ReportService) GetMonthlySummary(ctx context.Context, userID string, year, month int, walletID string) (core.MonthlySummary, error) {
	const op = "monthly summary"

	p := core.Period{Year: year, Month: month}
	zero := core.MonthlySummary{MonthTotals: core.MonthTotals{Year: year, Month: month}, WalletID: walletID}
	if !p.Valid() {
		return zero, core.Errorf(core.KindValidation, op, "invalid period %d-%d", year, month)
	}

	key := fmt.Sprintf("%s|summary|%s|%s", userID, p, walletID)
	sum, err := cached(s, userID, key, func() (core.MonthlySummary, error) {
		rows, err := s.store.Queries().ListMonthlyBalances(ctx, storage.ListMonthlyBalancesParams{
			UserID: userID, WalletID: walletID, From: p, To: p,
		})
		if err != nil {
			return zero, err
		}
		out := zero
		for _, r := range rows {
			out.Add(r)
		}
		out.Savings = out.MonthTotals.Savings()
		out.Materialized = len(rows) > 0
		return out, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Monthly summary read failed", "user_id", userID, "period", p.String(), "error", err)
		return zero, core.Wrap(core.KindStorage, op, err)
	}
	return sum, nil
}

// GetMonthlyStats rolls up every month in [from, to] across wallets,
// newest first, with months lacking buckets zero-filled. Zero periods
// default to the twelve months ending now.
func (s *ReportService) GetMonthlyStats(ctx context.Context, userID string, from, to core.Period) (core.MonthlyStats, error) {
	const op = "monthly stats"

	if !to.Valid() {
		to = core.PeriodOf(s.now())
	}
	if !from.Valid() {
		from = to
		for i := 1; i < defaultStatsMonths; i++ {
			from = from.Prev()
		}
	}
	periods := core.PeriodsBetween(from, to)
	zero := zeroStats(from, to, periods)
	if periods == nil {
		return zero, core.E(core.KindValidation, op, "from must not be after to")
	}

	key := fmt.Sprintf("%s|stats|%s|%s", userID, from, to)
	stats, err := cached(s, userID, key, func() (core.MonthlyStats, error) {
		var ranged, all []core.MonthlyBalance
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			ranged, err = s.store.Queries().ListMonthlyBalances(gctx, storage.ListMonthlyBalancesParams{
				UserID: userID, From: from, To: to,
			})
			return err
		})
		g.Go(func() error {
			var err error
			all, err = s.store.Queries().ListMonthlyBalances(gctx, storage.ListMonthlyBalancesParams{UserID: userID})
			return err
		})
		if err := g.Wait(); err != nil {
			return zero, err
		}
		return buildStats(from, to, periods, ranged, all), nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Monthly stats read failed", "user_id", userID, "error", err)
		return zero, core.Wrap(core.KindStorage, op, err)
	}
	return stats, nil
}

func zeroStats(from, to core.Period, periods []core.Period) core.MonthlyStats {
	stats := core.MonthlyStats{From: from, To: to, Months: make([]core.MonthTotals, len(periods))}
	for i, p := range periods {
		stats.Months[i] = core.MonthTotals{Year: p.Year, Month: p.Month}
	}
	return stats
}

func buildStats(from, to core.Period, periods []core.Period, ranged, all []core.MonthlyBalance) core.MonthlyStats {
	stats := zeroStats(from, to, periods)
	index := make(map[core.Period]int, len(periods))
	for i, p := range periods {
		index[p] = i
	}
	for _, r := range ranged {
		if i, ok := index[r.Period()]; ok {
			stats.Months[i].Add(r)
		}
	}
	for _, r := range all {
		stats.AllTime.Add(r)
	}
	if len(stats.Months) >= 2 {
		latest, prev := stats.Months[0], stats.Months[1]
		stats.IncomeChange = core.ChangePercent(prev.TotalIncome, latest.TotalIncome)
		stats.ExpenseChange = core.ChangePercent(prev.TotalExpense, latest.TotalExpense)
	}
	return stats
}

// RunningBalances pairs each of the wallet's transactions, oldest first,
// with the wallet balance right after it. Balances are reconstructed
// backwards from the live wallet balance.
func (s *ReportService) RunningBalances(ctx context.Context, userID, walletID string) ([]core.RunningBalance, error) {
	const op = "running balances"

	q := s.store.Queries()
	w, err := loadWallet(ctx, q, op, walletID, userID)
	if err != nil {
		return []core.RunningBalance{}, classify(op, err)
	}
	txs, err := q.ListWalletTransactions(ctx, walletID)
	if err != nil {
		return []core.RunningBalance{}, core.Wrap(core.KindStorage, op, err)
	}

	out := make([]core.RunningBalance, len(txs))
	bal := w.Balance
	for i := len(txs) - 1; i >= 0; i-- {
		out[i] = core.RunningBalance{Transaction: txs[i], Balance: bal}
		bal = bal.Sub(txs[i].SignedAmount())
	}
	if len(txs) > 0 && !bal.Equal(w.InitialBalance) {
		slog.WarnContext(ctx, "Wallet balance does not match its transactions",
			"wallet_id", walletID,
			"initial_balance", w.InitialBalance.String(),
			"reconstructed", bal.String())
	}
	return out, nil
}

// Drift reports how far the wallet balance is from initial balance plus
// the signed sum of its transactions. Zero means consistent.
func (s *ReportService) Drift(ctx context.Context, userID, walletID string) (decimal.Decimal, error) {
	const op = "balance drift"

	q := s.store.Queries()
	w, err := loadWallet(ctx, q, op, walletID, userID)
	if err != nil {
		return decimal.Zero, classify(op, err)
	}
	txs, err := q.ListWalletTransactions(ctx, walletID)
	if err != nil {
		return decimal.Zero, core.Wrap(core.KindStorage, op, err)
	}
	expected := w.InitialBalance
	for _, t := range txs {
		expected = expected.Add(t.SignedAmount())
	}
	return w.Balance.Sub(expected), nil
}
