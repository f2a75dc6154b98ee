package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/core"
	"moneta/internal/storage"

	"github.com/shopspring/decimal"
)

// CreateTransactionInput carries an INCOME or EXPENSE. Amount is a decimal
// string and a nil Date means now.
type CreateTransactionInput struct {
	UserID      string
	WalletID    string
	Type        string
	Amount      string
	Title       string
	Description string
	Date        *time.Time // nil means now
}

// UpdateTransactionInput changes a transaction. Empty Amount, nil Date and
// nil Title/Description keep the stored value.
type UpdateTransactionInput struct {
	ID          string
	UserID      string
	Amount      string
	Title       *string
	Description *string
	Date        *time.Time
}

// CreateTransaction records an INCOME or EXPENSE and applies it to the
// wallet and the bucket of its month.
func (l *Ledger) CreateTransaction(ctx context.Context, in CreateTransactionInput) (core.Transaction, error) {
	const op = "create transaction"

	typ, ok := core.ParseTransactionType(in.Type)
	if !ok {
		return core.Transaction{}, core.Errorf(core.KindValidation, op, "invalid transaction type %q", in.Type)
	}
	if typ != core.Income && typ != core.Expense {
		return core.Transaction{}, core.Errorf(core.KindUnsupported, op, "%s transactions cannot be created directly", typ)
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
	}
	title, desc, err := normalizeText(op, in.Title, in.Description)
	if err != nil {
		return core.Transaction{}, err
	}

	now := l.now().UTC()
	date := now
	if in.Date != nil {
		date = in.Date.UTC()
	}

	t := core.Transaction{
		ID:          newID(),
		UserID:      in.UserID,
		WalletID:    in.WalletID,
		Type:        typ,
		Amount:      amount,
		Title:       title,
		Description: desc,
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = l.atomically(ctx, op, func(q *storage.Queries) error {
		if _, err := loadWallet(ctx, q, op, in.WalletID, in.UserID); err != nil {
			return err
		}
		created, err := l.insertTransaction(ctx, q, t)
		if err != nil {
			return err
		}
		t = created
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", t.ID,
		"wallet_id", t.WalletID,
		"type", t.Type,
		"amount", core.FormatAmount(t.Amount),
		"period", t.Period().String())

	l.committed(ctx, t.UserID, ledgerEvent(amqp.EventTransactionCreated, t))
	return t, nil
}

// insertTransaction ensures the bucket, writes t and applies its effect.
// It is the single create path shared by CreateTransaction and both
// transfer legs.
func (l *Ledger) insertTransaction(ctx context.Context, q *storage.Queries, t core.Transaction) (core.Transaction, error) {
	p := t.Period()
	mb, err := l.ensureBucket(ctx, q, t.UserID, t.WalletID, p)
	if err != nil {
		return t, err
	}
	w, err := q.GetWallet(ctx, t.WalletID)
	if err != nil {
		return t, fmt.Errorf("get wallet: %w", err)
	}

	t.OpeningBalance = mb.ClosingBalance
	applyEffect(&mb, &w, t, false)
	t.ClosingBalance = mb.ClosingBalance

	if err := q.CreateTransaction(ctx, t); err != nil {
		return t, fmt.Errorf("insert transaction: %w", err)
	}
	if err := writeBalances(ctx, q, mb, w, t.UpdatedAt); err != nil {
		return t, err
	}
	if err := l.propagateFrom(ctx, q, t.UserID, t.WalletID, p); err != nil {
		return t, err
	}
	return t, nil
}

func writeBalances(ctx context.Context, q *storage.Queries, mb core.MonthlyBalance, w core.Wallet, at time.Time) error {
	mb.UpdatedAt = at
	if err := q.UpdateMonthlyBalance(ctx, mb); err != nil {
		return fmt.Errorf("update monthly balance: %w", err)
	}
	w.UpdatedAt = at
	if err := q.SetWalletBalance(ctx, w); err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	return nil
}

// UpdateTransaction edits amount, date, title or description. When amount
// and date are value-equal to the stored ones only the text changes.
// Otherwise the old effect is reversed in the old bucket and the new one
// applied in the bucket of the new date. The type never changes. For a
// transfer leg the new amount and date are mirrored onto the counterpart.
func (l *Ledger) UpdateTransaction(ctx context.Context, in UpdateTransactionInput) (core.Transaction, error) {
	const op = "update transaction"

	var newAmount *decimal.Decimal
	if strings.TrimSpace(in.Amount) != "" {
		a, err := core.ParseAmount(in.Amount)
		if err != nil {
			return core.Transaction{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
		}
		newAmount = &a
	}
	if in.Title != nil {
		if err := core.ValidateTitle(*in.Title); err != nil {
			return core.Transaction{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
		}
	}
	if in.Description != nil {
		if err := core.ValidateDescription(*in.Description); err != nil {
			return core.Transaction{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
		}
	}

	var (
		result    core.Transaction
		rebooked  bool
		counterpt *core.Transaction
	)
	err := l.atomically(ctx, op, func(q *storage.Queries) error {
		rebooked, counterpt = false, nil

		t, err := loadTransaction(ctx, q, op, in.ID, in.UserID)
		if err != nil {
			return err
		}
		if t.Type == core.Adjustment {
			return core.E(core.KindUnsupported, op, "adjustments cannot be updated")
		}

		amount, date := t.Amount, t.Date
		if newAmount != nil {
			amount = *newAmount
		}
		if in.Date != nil {
			date = in.Date.UTC()
		}
		now := l.now().UTC()

		if in.Title != nil {
			t.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			t.Description = strings.TrimSpace(*in.Description)
		}

		if amount.Equal(t.Amount) && date.Equal(t.Date) {
			if err := q.UpdateTransactionDetails(ctx, t.ID, t.Title, t.Description, now); err != nil {
				return fmt.Errorf("update transaction details: %w", err)
			}
			t.UpdatedAt = now
			result = t
			return nil
		}

		updated, err := l.rebook(ctx, q, t, amount, date, now)
		if err != nil {
			return err
		}
		rebooked = true
		result = updated

		if t.Type != core.Transfer || t.CounterpartID == "" {
			return nil
		}
		other, err := q.GetTransaction(ctx, t.CounterpartID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.E(core.KindNotFound, op, "transfer counterpart missing")
		}
		if err != nil {
			return fmt.Errorf("get counterpart: %w", err)
		}
		mirrored, err := l.rebook(ctx, q, other, amount, date, now)
		if err != nil {
			return err
		}
		counterpt = &mirrored

		if !amount.GreaterThan(t.Amount) {
			return nil
		}
		sender := t.WalletID
		if t.Direction != core.TransferOut {
			sender = other.WalletID
		}
		sw, err := q.GetWallet(ctx, sender)
		if err != nil {
			return fmt.Errorf("get sender wallet: %w", err)
		}
		// The sender must have been able to cover the raised amount.
		if sw.Balance.IsNegative() {
			return core.E(core.KindInsufficientBalance, op, "insufficient balance in sender wallet")
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", result.ID,
		"wallet_id", result.WalletID,
		"rebooked", rebooked,
		"amount", core.FormatAmount(result.Amount),
		"period", result.Period().String())

	events := []*amqp.LedgerEvent{ledgerEvent(amqp.EventTransactionUpdated, result)}
	if counterpt != nil {
		events = append(events, ledgerEvent(amqp.EventTransactionUpdated, *counterpt))
	}
	l.committed(ctx, result.UserID, events...)
	return result, nil
}

// rebook moves t's effect to a new amount and date and persists t.
func (l *Ledger) rebook(ctx context.Context, q *storage.Queries, t core.Transaction, amount decimal.Decimal, date, now time.Time) (core.Transaction, error) {
	oldP := t.Period()

	oldMB, err := l.ensureBucket(ctx, q, t.UserID, t.WalletID, oldP)
	if err != nil {
		return t, err
	}
	w, err := q.GetWallet(ctx, t.WalletID)
	if err != nil {
		return t, fmt.Errorf("get wallet: %w", err)
	}

	applyEffect(&oldMB, &w, t, true)
	oldMB.UpdatedAt = now
	if err := q.UpdateMonthlyBalance(ctx, oldMB); err != nil {
		return t, fmt.Errorf("update old monthly balance: %w", err)
	}

	t.Amount = amount
	t.Date = date
	t.UpdatedAt = now
	newP := t.Period()

	// Re-read after the write above; old and new may be the same row.
	newMB, err := l.ensureBucket(ctx, q, t.UserID, t.WalletID, newP)
	if err != nil {
		return t, err
	}
	t.OpeningBalance = newMB.ClosingBalance
	applyEffect(&newMB, &w, t, false)
	t.ClosingBalance = newMB.ClosingBalance

	if err := writeBalances(ctx, q, newMB, w, now); err != nil {
		return t, err
	}
	if err := q.UpdateTransaction(ctx, t); err != nil {
		return t, fmt.Errorf("update transaction: %w", err)
	}
	if err := l.propagateFrom(ctx, q, t.UserID, t.WalletID, oldP, newP); err != nil {
		return t, err
	}
	return t, nil
}

// DeleteTransaction reverses a transaction in its bucket and wallet and
// removes it. The bucket must already exist. Deleting either transfer leg
// removes both.
func (l *Ledger) DeleteTransaction(ctx context.Context, id, userID string) error {
	const op = "delete transaction"

	var removed []core.Transaction
	err := l.atomically(ctx, op, func(q *storage.Queries) error {
		removed = removed[:0]

		t, err := loadTransaction(ctx, q, op, id, userID)
		if err != nil {
			return err
		}
		if t.Type == core.Adjustment {
			return core.E(core.KindUnsupported, op, "adjustments cannot be deleted")
		}

		legs := []core.Transaction{t}
		if t.Type == core.Transfer && t.CounterpartID != "" {
			other, err := q.GetTransaction(ctx, t.CounterpartID)
			switch {
			case err == nil:
				legs = append(legs, other)
			case errors.Is(err, storage.ErrNotFound):
				slog.WarnContext(ctx, "Transfer counterpart already gone", "transaction_id", t.ID, "counterpart_id", t.CounterpartID)
			default:
				return fmt.Errorf("get counterpart: %w", err)
			}
		}

		now := l.now().UTC()
		for _, leg := range legs {
			if err := l.removeTransaction(ctx, q, op, leg, now); err != nil {
				return err
			}
			removed = append(removed, leg)
		}
		return nil
	})
	if err != nil {
		return err
	}

	events := make([]*amqp.LedgerEvent, 0, len(removed))
	for _, t := range removed {
		slog.InfoContext(ctx, "Transaction deleted",
			"transaction_id", t.ID,
			"wallet_id", t.WalletID,
			"amount", core.FormatAmount(t.Amount))
		events = append(events, ledgerEvent(amqp.EventTransactionDeleted, t))
	}
	l.committed(ctx, userID, events...)
	return nil
}

func (l *Ledger) removeTransaction(ctx context.Context, q *storage.Queries, op string, t core.Transaction, now time.Time) error {
	p := t.Period()
	mb, err := q.GetMonthlyBalance(ctx, t.UserID, t.WalletID, p.Year, p.Month)
	if errors.Is(err, storage.ErrNotFound) {
		return core.E(core.KindNotFound, op, "monthly balance missing")
	}
	if err != nil {
		return fmt.Errorf("get monthly balance: %w", err)
	}
	w, err := q.GetWallet(ctx, t.WalletID)
	if err != nil {
		return fmt.Errorf("get wallet: %w", err)
	}

	applyEffect(&mb, &w, t, true)
	if err := writeBalances(ctx, q, mb, w, now); err != nil {
		return err
	}
	if err := q.DeleteTransaction(ctx, t.ID); err != nil {
		return fmt.Errorf("delete transaction row: %w", err)
	}
	return l.propagateFrom(ctx, q, t.UserID, t.WalletID, p)
}

// normalizeText trims and validates title and description. An empty title
// falls back to DefaultTitle.
func normalizeText(op, title, desc string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = core.DefaultTitle
	}
	if err := core.ValidateTitle(title); err != nil {
		return "", "", &core.Error{Kind: core.KindValidation, Op: op, Err: err}
	}
	desc = strings.TrimSpace(desc)
	if err := core.ValidateDescription(desc); err != nil {
		return "", "", &core.Error{Kind: core.KindValidation, Op: op, Err: err}
	}
	return title, desc, nil
}
