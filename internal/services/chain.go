package services

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/core"
	"moneta/internal/storage"
)

// propagateChain rewrites every materialized bucket of the wallet after
// `from` so each opening equals the closing of the bucket before it.
// It only runs when the ledger was built with PropagateChain.
func (l *Ledger) propagateChain(ctx context.Context, q *storage.Queries, userID, walletID string, from core.Period) error {
	if !l.propagate {
		return nil
	}

	anchor, err := q.GetMonthlyBalance(ctx, userID, walletID, from.Year, from.Month)
	if err != nil {
		return fmt.Errorf("get chain anchor: %w", err)
	}

	later, err := q.ListMonthlyBalancesAfter(ctx, userID, walletID, from.Year, from.Month)
	if err != nil {
		return fmt.Errorf("list later monthly balances: %w", err)
	}

	prevClosing := anchor.ClosingBalance
	now := time.Now().UTC()
	for _, m := range later {
		if m.OpeningBalance.Equal(prevClosing) {
			prevClosing = m.ClosingBalance
			continue
		}
		m.OpeningBalance = prevClosing
		m.ClosingBalance = m.OpeningBalance.Add(m.TotalIncome).Sub(m.TotalExpense)
		m.UpdatedAt = now
		if err := q.UpdateMonthlyBalance(ctx, m); err != nil {
			return fmt.Errorf("update monthly balance %s: %w", m.Period(), err)
		}
		prevClosing = m.ClosingBalance
	}
	return nil
}

// propagateFrom runs propagateChain from the earliest of the given periods.
func (l *Ledger) propagateFrom(ctx context.Context, q *storage.Queries, userID, walletID string, periods ...core.Period) error {
	if !l.propagate || len(periods) == 0 {
		return nil
	}
	earliest := periods[0]
	for _, p := range periods[1:] {
		if p.Before(earliest) {
			earliest = p
		}
	}
	return l.propagateChain(ctx, q, userID, walletID, earliest)
}
