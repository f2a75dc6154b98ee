package http

import (
	"time"

	"moneta/internal/core"
	"moneta/internal/services"
)

type walletDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Currency       string    `json:"currency"`
	Balance        string    `json:"balance"`
	InitialBalance string    `json:"initialBalance"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toWalletDTO(w core.Wallet) walletDTO {
	return walletDTO{
		ID:             w.ID,
		Name:           w.Name,
		Type:           string(w.Type),
		Currency:       w.Currency,
		Balance:        core.FormatAmount(w.Balance),
		InitialBalance: core.FormatAmount(w.InitialBalance),
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

func toWalletDTOs(ws []core.Wallet) []walletDTO {
	out := make([]walletDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWalletDTO(w))
	}
	return out
}

type transactionDTO struct {
	ID             string    `json:"id"`
	WalletID       string    `json:"walletId"`
	Type           string    `json:"type"`
	Amount         string    `json:"amount"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Date           time.Time `json:"date"`
	OpeningBalance string    `json:"openingBalance"`
	ClosingBalance string    `json:"closingBalance"`
	Direction      string    `json:"direction,omitempty"`
	CounterpartID  string    `json:"counterpartId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:             t.ID,
		WalletID:       t.WalletID,
		Type:           string(t.Type),
		Amount:         core.FormatAmount(t.Amount),
		Title:          t.Title,
		Description:    t.Description,
		Date:           t.Date,
		OpeningBalance: core.FormatAmount(t.OpeningBalance),
		ClosingBalance: core.FormatAmount(t.ClosingBalance),
		Direction:      string(t.Direction),
		CounterpartID:  t.CounterpartID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

type transactionRowDTO struct {
	transactionDTO
	WalletName     string `json:"walletName"`
	WalletType     string `json:"walletType"`
	WalletCurrency string `json:"walletCurrency"`
}

func toRowDTOs(rows []core.TransactionRow) []transactionRowDTO {
	out := make([]transactionRowDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, transactionRowDTO{
			transactionDTO: toTransactionDTO(r.Transaction),
			WalletName:     r.WalletName,
			WalletType:     string(r.WalletType),
			WalletCurrency: r.WalletCurrency,
		})
	}
	return out
}

type transferDTO struct {
	Sender   transactionDTO `json:"sender"`
	Receiver transactionDTO `json:"receiver"`
}

func toTransferDTO(r services.TransferResult) transferDTO {
	return transferDTO{Sender: toTransactionDTO(r.Sender), Receiver: toTransactionDTO(r.Receiver)}
}

type runningBalanceDTO struct {
	transactionDTO
	Balance string `json:"balance"`
}

func toRunningBalanceDTOs(rbs []core.RunningBalance) []runningBalanceDTO {
	out := make([]runningBalanceDTO, 0, len(rbs))
	for _, rb := range rbs {
		out = append(out, runningBalanceDTO{transactionDTO: toTransactionDTO(rb.Transaction), Balance: core.FormatAmount(rb.Balance)})
	}
	return out
}

type monthTotalsDTO struct {
	Month          string `json:"month"`
	OpeningBalance string `json:"openingBalance"`
	TotalIncome    string `json:"totalIncome"`
	TotalExpense   string `json:"totalExpense"`
	ClosingBalance string `json:"closingBalance"`
	Savings        string `json:"savings"`
	WalletCount    int    `json:"walletCount"`
}

func toMonthTotalsDTO(m core.MonthTotals) monthTotalsDTO {
	dto := monthTotalsDTO{
		OpeningBalance: core.FormatAmount(m.OpeningBalance),
		TotalIncome:    core.FormatAmount(m.TotalIncome),
		TotalExpense:   core.FormatAmount(m.TotalExpense),
		ClosingBalance: core.FormatAmount(m.ClosingBalance),
		Savings:        core.FormatAmount(m.Savings()),
		WalletCount:    m.WalletCount,
	}
	if m.Year > 0 {
		dto.Month = core.Period{Year: m.Year, Month: m.Month}.String()
	}
	return dto
}

type monthlySummaryDTO struct {
	monthTotalsDTO
	WalletID     string `json:"walletId,omitempty"`
	Materialized bool   `json:"materialized"`
}

func toMonthlySummaryDTO(s core.MonthlySummary) monthlySummaryDTO {
	return monthlySummaryDTO{
		monthTotalsDTO: toMonthTotalsDTO(s.MonthTotals),
		WalletID:       s.WalletID,
		Materialized:   s.Materialized,
	}
}

type monthlyStatsDTO struct {
	From          string           `json:"from"`
	To            string           `json:"to"`
	Months        []monthTotalsDTO `json:"months"`
	AllTime       monthTotalsDTO   `json:"allTime"`
	IncomeChange  string           `json:"incomeChange"`
	ExpenseChange string           `json:"expenseChange"`
}

func toMonthlyStatsDTO(s core.MonthlyStats) monthlyStatsDTO {
	months := make([]monthTotalsDTO, 0, len(s.Months))
	for _, m := range s.Months {
		months = append(months, toMonthTotalsDTO(m))
	}
	return monthlyStatsDTO{
		From:          s.From.String(),
		To:            s.To.String(),
		Months:        months,
		AllTime:       toMonthTotalsDTO(s.AllTime),
		IncomeChange:  core.FormatAmount(s.IncomeChange),
		ExpenseChange: core.FormatAmount(s.ExpenseChange),
	}
}

type transactionSummaryDTO struct {
	TotalIncome      string `json:"totalIncome"`
	TotalExpense     string `json:"totalExpense"`
	TotalTransfer    string `json:"totalTransfer"`
	TotalAdjustment  string `json:"totalAdjustment"`
	NetAmount        string `json:"netAmount"`
	TransactionCount int    `json:"transactionCount"`
}

func toTransactionSummaryDTO(s core.TransactionSummary) transactionSummaryDTO {
	return transactionSummaryDTO{
		TotalIncome:      core.FormatAmount(s.TotalIncome),
		TotalExpense:     core.FormatAmount(s.TotalExpense),
		TotalTransfer:    core.FormatAmount(s.TotalTransfer),
		TotalAdjustment:  core.FormatAmount(s.TotalAdjustment),
		NetAmount:        core.FormatAmount(s.NetAmount),
		TransactionCount: s.TransactionCount,
	}
}
