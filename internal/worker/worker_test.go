package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/sheets"
	"moneta/internal/sheets/memory"

	"github.com/robfig/cron/v3"
)

func event(typ amqp.EventType, id string) *amqp.LedgerEvent {
	e := amqp.NewLedgerEvent(typ, "user-1", "wallet-1", id)
	e.Kind = "EXPENSE"
	e.Title = "Rent"
	e.Amount = "200.00"
	e.Date = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	e.Year, e.Month = 2024, 1
	return e
}

func TestMirrorWorkerLifecycle(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	w := NewMirrorWorker(mirror)

	if err := w.HandleLedgerEvent(ctx, event(amqp.EventTransactionCreated, "t1")); err != nil {
		t.Fatalf("created: %v", err)
	}
	if err := w.HandleLedgerEvent(ctx, event(amqp.EventTransferCreated, "t2")); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	updated := event(amqp.EventTransactionUpdated, "t1")
	updated.Amount = "250.00"
	if err := w.HandleLedgerEvent(ctx, updated); err != nil {
		t.Fatalf("updated: %v", err)
	}

	rows := mirror.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Amount != "250.00" || rows[0].Title != "Rent" || rows[0].WalletID != "wallet-1" {
		t.Fatalf("unexpected row %+v", rows[0])
	}

	if err := w.HandleLedgerEvent(ctx, event(amqp.EventTransactionDeleted, "t1")); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if rows := mirror.Rows(); len(rows) != 1 || rows[0].TransactionID != "t2" {
		t.Fatalf("unexpected rows after delete: %+v", rows)
	}

	if err := w.HandleLedgerEvent(ctx, event("wallet.renamed", "t3")); err != nil {
		t.Fatalf("unknown events are skipped: %v", err)
	}
	if err := w.HandleLedgerEvent(ctx, &amqp.LedgerEvent{Type: amqp.EventTransactionCreated}); err == nil {
		t.Fatal("expected error for event without id")
	}
}

type failingMirror struct{}

func (failingMirror) Upsert(context.Context, sheets.Row) (string, error) {
	return "", errors.New("quota exceeded")
}

func (failingMirror) Remove(context.Context, int, string) error {
	return errors.New("quota exceeded")
}

func TestMirrorWorkerPropagatesFailures(t *testing.T) {
	w := NewMirrorWorker(failingMirror{})
	if err := w.HandleLedgerEvent(context.Background(), event(amqp.EventTransactionCreated, "t1")); err == nil {
		t.Fatal("expected upsert failure to be returned for requeue")
	}
	if err := w.HandleLedgerEvent(context.Background(), event(amqp.EventTransactionDeleted, "t1")); err == nil {
		t.Fatal("expected remove failure to be returned for requeue")
	}
}

type recordingOpener struct {
	calls [][2]int
	err   error
}

func (r *recordingOpener) OpenMonthForAll(_ context.Context, year, month int) error {
	r.calls = append(r.calls, [2]int{year, month})
	return r.err
}

func TestRolloverOpensCurrentUTCMonth(t *testing.T) {
	opener := &recordingOpener{}
	r := NewRollover(opener)
	// 23:30 on Jan 31 at UTC-2 is already February in UTC.
	r.now = func() time.Time { return time.Date(2024, 1, 31, 23, 30, 0, 0, time.FixedZone("X", -2*3600)) }

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(opener.calls) != 1 || opener.calls[0] != [2]int{2024, 2} {
		t.Fatalf("calls = %v, want [[2024 2]]", opener.calls)
	}

	opener.err = errors.New("db down")
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error from ledger")
	}
}

func TestRolloverSchedule(t *testing.T) {
	c := cron.New()
	r := NewRollover(&recordingOpener{})

	id, err := r.Schedule(context.Background(), c, "")
	if err != nil {
		t.Fatalf("schedule default: %v", err)
	}
	entry := c.Entry(id)
	from := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
	if next := entry.Schedule.Next(from); !next.Equal(time.Date(2024, 4, 1, 0, 5, 0, 0, time.Local)) {
		t.Fatalf("next run = %s", next)
	}

	if _, err := r.Schedule(context.Background(), c, "not a schedule"); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}
