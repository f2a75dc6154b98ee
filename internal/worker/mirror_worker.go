package worker

import (
	"context"
	"errors"
	"fmt"

	"moneta/internal/amqp"
	applog "moneta/internal/log"
	"moneta/internal/sheets"
)

// MirrorWorker copies committed ledger changes into an external mirror.
type MirrorWorker struct {
	mirror sheets.TransactionMirror
	logger *applog.Logger
}

// NewMirrorWorker returns a worker that copies ledger events to mirror.
func NewMirrorWorker(mirror sheets.TransactionMirror) *MirrorWorker {
	return &MirrorWorker{
		mirror: mirror,
		logger: applog.FromContext(context.Background()).WithComponent(applog.ComponentWorker),
	}
}

// HandleLedgerEvent applies one event to the mirror. A returned error
// makes the consumer requeue the message.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	if e == nil || e.TransactionID == "" {
		return errors.New("ledger event without transaction id")
	}

	fields := applog.NewFields().
		WithOperation(applog.OpMirror).
		WithLedger(e.UserID, e.WalletID, e.TransactionID)
	w.logger.DebugContext(ctx, "Processing ledger event", append(fields.ToSlice(), "type", e.Type)...)

	switch e.Type {
	case amqp.EventTransactionCreated, amqp.EventTransactionUpdated, amqp.EventTransferCreated:
		ref, err := w.mirror.Upsert(ctx, rowFromEvent(e))
		if err != nil {
			return fmt.Errorf("mirror transaction %s: %w", e.TransactionID, err)
		}
		w.logger.InfoContext(ctx, "Transaction mirrored", append(fields.ToSlice(), "ref", ref)...)
	case amqp.EventTransactionDeleted:
		year := e.Year
		if year == 0 {
			year = e.Date.Year()
		}
		if err := w.mirror.Remove(ctx, year, e.TransactionID); err != nil {
			return fmt.Errorf("remove mirrored transaction %s: %w", e.TransactionID, err)
		}
		w.logger.InfoContext(ctx, "Mirrored transaction removed", fields.ToSlice()...)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown ledger event", append(fields.ToSlice(), "type", e.Type)...)
	}
	return nil
}

func rowFromEvent(e *amqp.LedgerEvent) sheets.Row {
	return sheets.Row{
		TransactionID: e.TransactionID,
		UserID:        e.UserID,
		WalletID:      e.WalletID,
		Kind:          e.Kind,
		Title:         e.Title,
		Amount:        e.Amount,
		Date:          e.Date,
	}
}
