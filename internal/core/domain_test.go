package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPeriodPrevNext(t *testing.T) {
	cases := []struct {
		p, prev, next Period
	}{
		{Period{2024, 3}, Period{2024, 2}, Period{2024, 4}},
		{Period{2024, 1}, Period{2023, 12}, Period{2024, 2}},
		{Period{2024, 12}, Period{2024, 11}, Period{2025, 1}},
	}
	for _, tc := range cases {
		if got := tc.p.Prev(); got != tc.prev {
			t.Fatalf("%s.Prev() = %s, want %s", tc.p, got, tc.prev)
		}
		if got := tc.p.Next(); got != tc.next {
			t.Fatalf("%s.Next() = %s, want %s", tc.p, got, tc.next)
		}
	}
}

func TestPeriodOfUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 2024-03-01 02:00 at +5 is still February in UTC.
	ts := time.Date(2024, 3, 1, 2, 0, 0, 0, loc)
	if got := PeriodOf(ts); got != (Period{2024, 2}) {
		t.Fatalf("got %s", got)
	}
}

func TestPeriodsBetween(t *testing.T) {
	got := PeriodsBetween(Period{2023, 11}, Period{2024, 2})
	want := []Period{{2024, 2}, {2024, 1}, {2023, 12}, {2023, 11}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if PeriodsBetween(Period{2024, 2}, Period{2024, 1}) != nil {
		t.Fatalf("expected nil for inverted range")
	}
}

func TestSignedAmount(t *testing.T) {
	amt := decimal.NewFromInt(40)
	cases := []struct {
		tx   Transaction
		want int64
	}{
		{Transaction{Type: Income, Amount: amt}, 40},
		{Transaction{Type: Expense, Amount: amt}, -40},
		{Transaction{Type: Transfer, Direction: TransferIn, Amount: amt}, 40},
		{Transaction{Type: Transfer, Direction: TransferOut, Amount: amt}, -40},
		{Transaction{Type: Adjustment, Amount: amt}, 0},
	}
	for i, tc := range cases {
		if got := tc.tx.SignedAmount(); !got.Equal(decimal.NewFromInt(tc.want)) {
			t.Fatalf("case %d: got %s, want %d", i, got, tc.want)
		}
	}
}

func TestValidation(t *testing.T) {
	if err := ValidateWalletName("  "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := ValidateWalletName(strings.Repeat("a", 51)); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
	if err := ValidateTitle(strings.Repeat("t", 101)); !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("expected ErrTitleTooLong, got %v", err)
	}
	if err := ValidateDescription(strings.Repeat("d", 501)); !errors.Is(err, ErrDescriptionTooLong) {
		t.Fatalf("expected ErrDescriptionTooLong, got %v", err)
	}
	if !Bank.Valid() || WalletType("vault").Valid() {
		t.Fatalf("wallet type validation broken")
	}
	if typ, ok := ParseTransactionType("income"); !ok || typ != Income {
		t.Fatalf("got %q %v", typ, ok)
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("outer: %w", E(KindNotFound, "delete transaction", "transaction not found"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound match")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unexpected authorization match")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("got kind %v", KindOf(err))
	}
	wrapped := Wrap(KindStorage, "create transaction", errors.New("disk full"))
	if !errors.Is(wrapped, ErrStorage) {
		t.Fatalf("expected storage kind")
	}
	if Wrap(KindStorage, "x", err) != err {
		t.Fatalf("Wrap must keep an existing kind")
	}
}

func TestTransactionFilterRange(t *testing.T) {
	now := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	start, end, ok := TransactionFilter{}.Range(now)
	if !ok || !start.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) || end.Month() != time.May {
		t.Fatalf("default month range wrong: %v %v %v", start, end, ok)
	}
	start, end, _ = TransactionFilter{Period: PeriodYear, Year: 2023}.Range(now)
	if start.Year() != 2023 || start.Month() != time.January || end.Month() != time.December {
		t.Fatalf("year range wrong: %v %v", start, end)
	}
	if _, _, ok := (TransactionFilter{Period: PeriodCustom}).Range(now); ok {
		t.Fatalf("custom range without bounds must be unbounded")
	}
}
