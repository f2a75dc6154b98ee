package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MonthTotals sums MonthlyBalance rows for one month. Months without rows
// are all zero.
type MonthTotals struct {
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	TotalExpense   decimal.Decimal `json:"totalExpense"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	WalletCount    int             `json:"walletCount"`
}

// Savings is income minus expense for the month.
func (m MonthTotals) Savings() decimal.Decimal {
	return m.TotalIncome.Sub(m.TotalExpense)
}

// Add folds a MonthlyBalance row into the totals.
func (m *MonthTotals) Add(b MonthlyBalance) {
	m.OpeningBalance = m.OpeningBalance.Add(b.OpeningBalance)
	m.TotalIncome = m.TotalIncome.Add(b.TotalIncome)
	m.TotalExpense = m.TotalExpense.Add(b.TotalExpense)
	m.ClosingBalance = m.ClosingBalance.Add(b.ClosingBalance)
	m.WalletCount++
}

// MonthlySummary is the dashboard view of one month.
type MonthlySummary struct {
	MonthTotals
	WalletID     string          `json:"walletId,omitempty"`
	Savings      decimal.Decimal `json:"savings"`
	Materialized bool            `json:"materialized"`
}

// MonthlyStats is the analytics view over a month range.
type MonthlyStats struct {
	From          Period          `json:"-"`
	To            Period          `json:"-"`
	Months        []MonthTotals   `json:"months"` // newest first, zero-filled
	AllTime       MonthTotals     `json:"allTime"`
	IncomeChange  decimal.Decimal `json:"incomeChange"`  // percent, latest vs previous month
	ExpenseChange decimal.Decimal `json:"expenseChange"` // percent, latest vs previous month
}

// TransactionRow is a transaction joined with its wallet for listings.
type TransactionRow struct {
	Transaction
	WalletName     string
	WalletType     WalletType
	WalletCurrency string
}

// TransactionSummary groups a filtered listing by type.
type TransactionSummary struct {
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpense     decimal.Decimal `json:"totalExpense"`
	TotalTransfer    decimal.Decimal `json:"totalTransfer"`
	TotalAdjustment  decimal.Decimal `json:"totalAdjustment"`
	NetAmount        decimal.Decimal `json:"netAmount"`
	TransactionCount int             `json:"transactionCount"`
}

// RunningBalance is a transaction with the wallet balance right after it.
type RunningBalance struct {
	Transaction
	Balance decimal.Decimal
}

// PeriodKind selects how a TransactionFilter resolves its date range.
type PeriodKind string

const (
	PeriodMonth  PeriodKind = "month"
	PeriodYear   PeriodKind = "year"
	PeriodCustom PeriodKind = "custom"
	PeriodAll    PeriodKind = "all"
)

// TransactionFilter drives GetFilteredTransactions. Zero values mean
// "no constraint" except Period, which defaults to the current month.
type TransactionFilter struct {
	UserID   string
	Type     TransactionType // empty or "ALL" for every type
	WalletID string
	Period   PeriodKind
	Year     int
	Month    int
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

// Range resolves the filter to an inclusive date range. ok is false when
// the filter is unbounded.
func (f TransactionFilter) Range(now time.Time) (start, end time.Time, ok bool) {
	year, month := f.Year, f.Month
	if year == 0 {
		year = now.UTC().Year()
	}
	if month == 0 {
		month = int(now.UTC().Month())
	}
	switch f.Period {
	case PeriodAll:
		return time.Time{}, time.Time{}, false
	case PeriodCustom:
		if f.Start.IsZero() || f.End.IsZero() {
			return time.Time{}, time.Time{}, false
		}
		return f.Start, f.End, true
	case PeriodYear:
		return Period{Year: year, Month: 1}.Start(), Period{Year: year, Month: 12}.End(), true
	default:
		p := Period{Year: year, Month: month}
		return p.Start(), p.End(), true
	}
}

// ChangePercent is the relative change from old to new in percent.
// Both zero gives 0; a zero old value gives 100.
func ChangePercent(old, new decimal.Decimal) decimal.Decimal {
	if old.IsZero() {
		if new.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return new.Sub(old).Div(old.Abs()).Mul(hundred)
}
