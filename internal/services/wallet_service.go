package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"moneta/internal/core"
	"moneta/internal/storage"

	"github.com/shopspring/decimal"
)

// CreateWalletInput carries a new wallet. InitialBalance is a decimal
// string; empty means zero.
type CreateWalletInput struct {
	UserID         string
	Name           string
	Type           string
	Currency       string
	InitialBalance string
}

// UpdateWalletInput changes the descriptive fields of a wallet. Empty
// fields keep the stored value. The balance is never editable.
type UpdateWalletInput struct {
	ID       string
	UserID   string
	Name     string
	Type     string
	Currency string
}

// EnsurePrimaryWallet returns the user's oldest wallet, creating an empty
// "Primary Wallet" when the user has none. Calling it again returns the
// same wallet.
func (l *Ledger) EnsurePrimaryWallet(ctx context.Context, userID string) (core.Wallet, error) {
	const op = "ensure primary wallet"

	if strings.TrimSpace(userID) == "" {
		return core.Wallet{}, core.E(core.KindValidation, op, "user id is required")
	}

	var (
		wallet  core.Wallet
		created bool
	)
	err := l.atomically(ctx, op, func(q *storage.Queries) error {
		created = false
		wallets, err := q.ListWalletsByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		if len(wallets) > 0 {
			wallet = wallets[0]
			return nil
		}

		now := l.now().UTC()
		wallet = core.Wallet{
			ID:             newID(),
			UserID:         userID,
			Name:           core.PrimaryWalletName,
			Type:           core.Cash,
			Currency:       l.defaultCurrency,
			Balance:        decimal.Zero,
			InitialBalance: decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := q.CreateWallet(ctx, wallet); err != nil {
			return fmt.Errorf("create wallet: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return core.Wallet{}, err
	}

	if created {
		slog.InfoContext(ctx, "Primary wallet created", "user_id", userID, "wallet_id", wallet.ID)
		l.committed(ctx, userID)
	}
	return wallet, nil
}

// CreateWallet validates and stores a new wallet whose balance starts at
// its initial balance.
func (l *Ledger) CreateWallet(ctx context.Context, in CreateWalletInput) (core.Wallet, error) {
	const op = "create wallet"

	if strings.TrimSpace(in.UserID) == "" {
		return core.Wallet{}, core.E(core.KindValidation, op, "user id is required")
	}
	name := strings.TrimSpace(in.Name)
	if err := core.ValidateWalletName(name); err != nil {
		return core.Wallet{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
	}
	typ := core.WalletType(strings.ToLower(strings.TrimSpace(in.Type)))
	if typ == "" {
		typ = core.Cash
	}
	if !typ.Valid() {
		return core.Wallet{}, &core.Error{Kind: core.KindValidation, Op: op, Err: core.ErrInvalidWalletType}
	}
	currency := in.Currency
	if strings.TrimSpace(currency) == "" {
		currency = l.defaultCurrency
	}
	currency, err := core.NormalizeCurrency(currency)
	if err != nil {
		return core.Wallet{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
	}
	initial, err := core.ParseBalance(in.InitialBalance)
	if err != nil {
		return core.Wallet{}, &core.Error{Kind: core.KindValidation, Op: op, Err: err}
	}

	now := l.now().UTC()
	w := core.Wallet{
		ID:             newID(),
		UserID:         in.UserID,
		Name:           name,
		Type:           typ,
		Currency:       currency,
		Balance:        initial,
		InitialBalance: initial,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = l.atomically(ctx, op, func(q *storage.Queries) error {
		if err := q.CreateWallet(ctx, w); err != nil {
			return fmt.Errorf("insert wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Wallet{}, err
	}

	slog.InfoContext(ctx, "Wallet created",
		"wallet_id", w.ID,
		"user_id", w.UserID,
		"type", w.Type,
		"currency", w.Currency)

	l.committed(ctx, w.UserID)
	return w, nil
}

// UpdateWallet changes the name, type or currency of a wallet. Empty
// fields keep the stored value. The balance is never editable.
func (l *Ledger) UpdateWallet(ctx context.Context, in UpdateWalletInput) (core.Wallet, error) {
	const op = "update wallet"

	var w core.Wallet
	err := l.atomically(ctx, op, func(q *storage.Queries) error {
		var err error
		w, err = loadWallet(ctx, q, op, in.ID, in.UserID)
		if err != nil {
			return err
		}

		if name := strings.TrimSpace(in.Name); name != "" {
			if err := core.ValidateWalletName(name); err != nil {
				return &core.Error{Kind: core.KindValidation, Op: op, Err: err}
			}
			w.Name = name
		}
		if t := strings.TrimSpace(in.Type); t != "" {
			typ := core.WalletType(strings.ToLower(t))
			if !typ.Valid() {
				return &core.Error{Kind: core.KindValidation, Op: op, Err: core.ErrInvalidWalletType}
			}
			w.Type = typ
		}
		if strings.TrimSpace(in.Currency) != "" {
			c, err := core.NormalizeCurrency(in.Currency)
			if err != nil {
				return &core.Error{Kind: core.KindValidation, Op: op, Err: err}
			}
			w.Currency = c
		}
		w.UpdatedAt = l.now().UTC()

		return q.UpdateWalletDetails(ctx, storage.UpdateWalletParams{
			ID:        w.ID,
			Name:      w.Name,
			Type:      w.Type,
			Currency:  w.Currency,
			UpdatedAt: w.UpdatedAt,
		})
	})
	if err != nil {
		return core.Wallet{}, err
	}

	l.committed(ctx, w.UserID)
	return w, nil
}

// DeleteWallet removes a wallet that has no transactions and no monthly
// balances, as long as the user keeps at least one other wallet. Buckets
// with no income and no expense, such as those the rollover opens, are
// removed with it.
func (l *Ledger) DeleteWallet(ctx context.Context, walletID, userID string) error {
	const op = "delete wallet"

	err := l.atomically(ctx, op, func(q *storage.Queries) error {
		if _, err := loadWallet(ctx, q, op, walletID, userID); err != nil {
			return err
		}

		count, err := q.CountWalletsByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("count wallets: %w", err)
		}
		if count <= 1 {
			return core.E(core.KindLastWallet, op, "cannot delete the last wallet")
		}

		txCount, err := q.CountTransactionsByWallet(ctx, walletID)
		if err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if txCount == 0 {
			if err := dropEmptyBuckets(ctx, q, userID, walletID); err != nil {
				return err
			}
		}
		mbCount, err := q.CountMonthlyBalancesByWallet(ctx, walletID)
		if err != nil {
			return fmt.Errorf("count monthly balances: %w", err)
		}
		if txCount > 0 || mbCount > 0 {
			return core.Errorf(core.KindWalletInUse, op,
				"wallet has %d transactions and %d monthly balances", txCount, mbCount)
		}

		if err := q.DeleteWallet(ctx, walletID); err != nil {
			return fmt.Errorf("delete wallet row: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Wallet deleted", "wallet_id", walletID, "user_id", userID)
	l.committed(ctx, userID)
	return nil
}

// dropEmptyBuckets deletes the wallet's buckets that recorded nothing.
func dropEmptyBuckets(ctx context.Context, q *storage.Queries, userID, walletID string) error {
	rows, err := q.ListMonthlyBalances(ctx, storage.ListMonthlyBalancesParams{UserID: userID, WalletID: walletID})
	if err != nil {
		return fmt.Errorf("list monthly balances: %w", err)
	}
	for _, m := range rows {
		if !m.TotalIncome.IsZero() || !m.TotalExpense.IsZero() {
			continue
		}
		if err := q.DeleteMonthlyBalance(ctx, m.ID); err != nil {
			return fmt.Errorf("delete monthly balance %s: %w", m.Period(), err)
		}
	}
	return nil
}

// ListWallets returns the user's wallets, oldest first.
func (l *Ledger) ListWallets(ctx context.Context, userID string) ([]core.Wallet, error) {
	wallets, err := l.store.Queries().ListWalletsByUser(ctx, userID)
	if err != nil {
		return nil, core.Wrap(core.KindStorage, "list wallets", err)
	}
	return wallets, nil
}

// GetWallet returns one of the user's wallets.
func (l *Ledger) GetWallet(ctx context.Context, walletID, userID string) (core.Wallet, error) {
	w, err := loadWallet(ctx, l.store.Queries(), "get wallet", walletID, userID)
	if err != nil {
		return core.Wallet{}, classify("get wallet", err)
	}
	return w, nil
}
