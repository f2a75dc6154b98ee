package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Cash    WalletType = "cash"
	Card    WalletType = "card"
	Bank    WalletType = "bank"
	Digital WalletType = "digital"
)

const (
	Income     TransactionType = "INCOME"
	Expense    TransactionType = "EXPENSE"
	Transfer   TransactionType = "TRANSFER"
	Adjustment TransactionType = "ADJUSTMENT"
)

const (
	TransferOut Direction = "OUT"
	TransferIn  Direction = "IN"
)

const (
	PrimaryWalletName    = "Primary Wallet"
	DefaultTitle         = "Transaction"
	MaxWalletNameLength  = 50
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

type (
	WalletType      string
	TransactionType string

	// Direction tells which side of a transfer a TRANSFER leg sits on.
	Direction string

	Wallet struct {
		ID             string
		UserID         string
		Name           string
		Type           WalletType
		Currency       string
		Balance        decimal.Decimal
		InitialBalance decimal.Decimal
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	Transaction struct {
		ID             string
		UserID         string
		WalletID       string
		Type           TransactionType
		Amount         decimal.Decimal
		Title          string
		Description    string
		Date           time.Time
		OpeningBalance decimal.Decimal // bucket closing before this transaction was applied
		ClosingBalance decimal.Decimal // bucket closing right after
		Direction      Direction       // TRANSFER legs only
		CounterpartID  string          // TRANSFER legs only
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	// MonthlyBalance is the per-wallet, per-calendar-month aggregate.
	MonthlyBalance struct {
		ID             string
		UserID         string
		WalletID       string
		Year           int
		Month          int
		OpeningBalance decimal.Decimal
		TotalIncome    decimal.Decimal
		TotalExpense   decimal.Decimal
		ClosingBalance decimal.Decimal
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}
)

var (
	ErrEmptyName          = errors.New("wallet name is required")
	ErrNameTooLong        = errors.New("wallet name must be less than 50 characters")
	ErrInvalidWalletType  = errors.New("invalid wallet type")
	ErrEmptyTitle         = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title must be less than 100 characters")
	ErrDescriptionTooLong = errors.New("description must be less than 500 characters")
)

func (t WalletType) Valid() bool {
	switch t {
	case Cash, Card, Bank, Digital:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Transfer, Adjustment:
		return true
	}
	return false
}

// ParseTransactionType accepts any letter case.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// IsInflow reports whether the transaction adds to its wallet.
func (t Transaction) IsInflow() bool {
	switch t.Type {
	case Income:
		return true
	case Transfer:
		return t.Direction == TransferIn
	}
	return false
}

// IsOutflow reports whether the transaction takes from its wallet.
func (t Transaction) IsOutflow() bool {
	switch t.Type {
	case Expense:
		return true
	case Transfer:
		return t.Direction == TransferOut
	}
	return false
}

// SignedAmount is the effect of the transaction on its wallet balance.
// Adjustments carry no effect.
func (t Transaction) SignedAmount() decimal.Decimal {
	switch {
	case t.IsInflow():
		return t.Amount
	case t.IsOutflow():
		return t.Amount.Neg()
	}
	return decimal.Zero
}

// Period returns the calendar bucket the transaction falls in.
func (t Transaction) Period() Period {
	return PeriodOf(t.Date)
}

// Balanced reports whether closing == opening + income - expense.
func (m MonthlyBalance) Balanced() bool {
	return m.ClosingBalance.Equal(m.OpeningBalance.Add(m.TotalIncome).Sub(m.TotalExpense))
}

// Period returns the bucket key of the row.
func (m MonthlyBalance) Period() Period {
	return Period{Year: m.Year, Month: m.Month}
}

// ValidateWalletName requires 1 to 50 characters after trimming.
func ValidateWalletName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxWalletNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateTitle rejects blank titles and titles over 100 characters.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// ValidateDescription allows up to 500 characters.
func ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}
