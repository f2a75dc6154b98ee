package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/core"
	"moneta/internal/storage"

	"github.com/google/uuid"
)

const (
	maxAttempts  = 3
	retryBackoff = 25 * time.Millisecond
)

// Store is the atomic scope the ledger writes through.
type Store interface {
	Queries() *storage.Queries
	WithTx(ctx context.Context, fn func(*storage.Queries) error) error
}

// EventPublisher receives ledger events after commit.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// CacheInvalidator drops cached reads of a user after a committed mutation.
type CacheInvalidator interface {
	InvalidateUser(userID string)
}

// Options configures a Ledger. Every field is optional.
type Options struct {
	Publisher       EventPublisher
	Invalidator     CacheInvalidator
	PropagateChain  bool
	DefaultCurrency string
	// Now overrides the clock; tests use it to pin default dates.
	Now func() time.Time
}

// Ledger is the transaction mutator. Every mutation runs in one database
// transaction that writes the Transaction, MonthlyBalance and Wallet rows
// together.
type Ledger struct {
	store           Store
	publisher       EventPublisher
	invalidator     CacheInvalidator
	propagate       bool
	defaultCurrency string
	now             func() time.Time
}

// NewLedger builds the ledger over store. Without a Publisher events are
// skipped. DefaultCurrency falls back to USD.
func NewLedger(store Store, opts Options) *Ledger {
	l := &Ledger{
		store:           store,
		publisher:       opts.Publisher,
		invalidator:     opts.Invalidator,
		propagate:       opts.PropagateChain,
		defaultCurrency: opts.DefaultCurrency,
		now:             opts.Now,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.defaultCurrency == "" {
		l.defaultCurrency = "USD"
	}
	return l
}

func newID() string {
	return uuid.NewString()
}

// atomically runs fn in one transaction. A lost bucket-insert race or a
// busy database retries fn from scratch so it re-reads everything.
func (l *Ledger) atomically(ctx context.Context, op string, fn func(q *storage.Queries) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = l.store.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return classify(op, err)
		}

		slog.WarnContext(ctx, "Ledger write conflict, retrying",
			"operation", op, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return core.Wrap(core.KindStorage, op, ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return &core.Error{Kind: core.KindConflict, Op: op, Msg: "too many concurrent updates", Err: err}
}

func isRetryable(err error) bool {
	return storage.IsConflict(err) || core.KindOf(err) == core.KindConflict
}

// classify keeps typed domain errors and marks anything else as a storage
// failure.
func classify(op string, err error) error {
	var le *core.Error
	if errors.As(err, &le) {
		return err
	}
	return core.Wrap(core.KindStorage, op, err)
}

// committed runs the post-commit side effects. Neither can fail the
// operation.
func (l *Ledger) committed(ctx context.Context, userID string, events ...*amqp.LedgerEvent) {
	if l.invalidator != nil {
		l.invalidator.InvalidateUser(userID)
	}
	if len(events) == 0 {
		return
	}
	if l.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping ledger events", "count", len(events))
		return
	}
	for _, e := range events {
		if err := l.publisher.PublishLedgerEvent(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger event",
				"type", e.Type, "transaction_id", e.TransactionID, "error", err)
		}
	}
}

func ledgerEvent(typ amqp.EventType, t core.Transaction) *amqp.LedgerEvent {
	e := amqp.NewLedgerEvent(typ, t.UserID, t.WalletID, t.ID)
	p := t.Period()
	e.Kind = string(t.Type)
	e.Title = t.Title
	e.Year, e.Month = p.Year, p.Month
	e.Amount = core.FormatAmount(t.Amount)
	e.Date = t.Date.UTC()
	return e
}

// loadWallet fetches a wallet and checks it belongs to userID.
func loadWallet(ctx context.Context, q *storage.Queries, op, walletID, userID string) (core.Wallet, error) {
	w, err := q.GetWallet(ctx, walletID)
	if errors.Is(err, storage.ErrNotFound) {
		return w, core.E(core.KindNotFound, op, "wallet not found")
	}
	if err != nil {
		return w, fmt.Errorf("get wallet: %w", err)
	}
	if w.UserID != userID {
		return w, core.E(core.KindAuthorization, op, "wallet belongs to another user")
	}
	return w, nil
}

// loadTransaction fetches a transaction and checks it belongs to userID.
func loadTransaction(ctx context.Context, q *storage.Queries, op, id, userID string) (core.Transaction, error) {
	t, err := q.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return t, core.E(core.KindNotFound, op, "transaction not found")
	}
	if err != nil {
		return t, fmt.Errorf("get transaction: %w", err)
	}
	if t.UserID != userID {
		return t, core.E(core.KindAuthorization, op, "transaction belongs to another user")
	}
	return t, nil
}

// applyEffect folds t into bucket and wallet. With reverse set it undoes a
// previous application.
func applyEffect(m *core.MonthlyBalance, w *core.Wallet, t core.Transaction, reverse bool) {
	amt := t.Amount
	if reverse {
		amt = amt.Neg()
	}
	switch {
	case t.IsInflow():
		m.TotalIncome = m.TotalIncome.Add(amt)
		m.ClosingBalance = m.ClosingBalance.Add(amt)
		w.Balance = w.Balance.Add(amt)
	case t.IsOutflow():
		m.TotalExpense = m.TotalExpense.Add(amt)
		m.ClosingBalance = m.ClosingBalance.Sub(amt)
		w.Balance = w.Balance.Sub(amt)
	}
}
