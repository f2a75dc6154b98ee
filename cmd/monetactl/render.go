package main

import (
	"fmt"
	"strings"

	"moneta/internal/core"

	"github.com/shopspring/decimal"
)

// cell escapes pipes so free text cannot break a markdown table.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func renderWallets(wallets []core.Wallet) string {
	var b strings.Builder
	b.WriteString("# Wallets\n\n")
	if len(wallets) == 0 {
		b.WriteString("_No wallets yet._\n")
		return b.String()
	}
	b.WriteString("| Name | Type | Balance | Id |\n|---|---|---:|---|\n")
	for _, w := range wallets {
		fmt.Fprintf(&b, "| %s | %s | %s | `%s` |\n", cell(w.Name), w.Type, core.FormatMoney(w.Balance, w.Currency), w.ID)
	}
	return b.String()
}

func renderHistory(rbs []core.RunningBalance, drift decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("# History\n\n")
	if len(rbs) == 0 {
		b.WriteString("_No transactions._\n")
	} else {
		b.WriteString("| Date | Type | Title | Amount | Balance |\n|---|---|---|---:|---:|\n")
		for _, rb := range rbs {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				rb.Date.Format("2006-01-02"), typeLabel(rb.Transaction), cell(rb.Title),
				core.FormatAmount(rb.SignedAmount()), core.FormatAmount(rb.Balance))
		}
	}
	if drift.IsZero() {
		b.WriteString("\nBalance matches the transaction history.\n")
	} else {
		fmt.Fprintf(&b, "\n**Balance drift: %s.** The stored balance does not match the history.\n", core.FormatAmount(drift))
	}
	return b.String()
}

func typeLabel(t core.Transaction) string {
	if t.Type == core.Transfer {
		return fmt.Sprintf("%s %s", t.Type, t.Direction)
	}
	return string(t.Type)
}

func renderTransactions(rows []core.TransactionRow, sum core.TransactionSummary) string {
	var b strings.Builder
	b.WriteString("# Transactions\n\n")
	if len(rows) == 0 {
		b.WriteString("_No transactions._\n")
	} else {
		b.WriteString("| Date | Wallet | Type | Title | Amount | Id |\n|---|---|---|---|---:|---|\n")
		for _, r := range rows {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | `%s` |\n",
				r.Date.Format("2006-01-02"), cell(r.WalletName), typeLabel(r.Transaction), cell(r.Title),
				core.FormatAmount(r.Amount), r.ID)
		}
	}
	fmt.Fprintf(&b, "\n%d transactions. Income **%s**, expense **%s**, net **%s**.\n",
		sum.TransactionCount, core.FormatAmount(sum.TotalIncome), core.FormatAmount(sum.TotalExpense), core.FormatAmount(sum.NetAmount))
	return b.String()
}

func renderSummary(s core.MonthlySummary) string {
	var b strings.Builder
	title := core.Period{Year: s.Year, Month: s.Month}.String()
	if s.WalletID != "" {
		title += " (wallet `" + s.WalletID + "`)"
	}
	fmt.Fprintf(&b, "# Summary %s\n\n", title)
	if !s.Materialized {
		b.WriteString("_No activity recorded for this month._\n\n")
	}
	b.WriteString("| | Amount |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Opening | %s |\n", core.FormatAmount(s.OpeningBalance))
	fmt.Fprintf(&b, "| Income | %s |\n", core.FormatAmount(s.TotalIncome))
	fmt.Fprintf(&b, "| Expense | %s |\n", core.FormatAmount(s.TotalExpense))
	fmt.Fprintf(&b, "| Savings | %s |\n", core.FormatAmount(s.Savings))
	fmt.Fprintf(&b, "| **Closing** | **%s** |\n", core.FormatAmount(s.ClosingBalance))
	return b.String()
}

func renderStats(s core.MonthlyStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Statistics %s to %s\n\n", s.From, s.To)
	b.WriteString("| Month | Opening | Income | Expense | Savings | Closing |\n|---|---:|---:|---:|---:|---:|\n")
	for _, m := range s.Months {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			core.Period{Year: m.Year, Month: m.Month},
			core.FormatAmount(m.OpeningBalance), core.FormatAmount(m.TotalIncome),
			core.FormatAmount(m.TotalExpense), core.FormatAmount(m.Savings()), core.FormatAmount(m.ClosingBalance))
	}
	fmt.Fprintf(&b, "\nIncome change **%s%%**, expense change **%s%%** against the previous month.\n",
		core.FormatAmount(s.IncomeChange), core.FormatAmount(s.ExpenseChange))
	fmt.Fprintf(&b, "\nAll time: income %s, expense %s.\n",
		core.FormatAmount(s.AllTime.TotalIncome), core.FormatAmount(s.AllTime.TotalExpense))
	return b.String()
}
