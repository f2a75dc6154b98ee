package google

import (
	"context"
	"strings"
	"testing"
	"time"

	ports "moneta/internal/sheets"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got: %v", err)
	}
}

func TestNewFromEnv_InvalidCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "invalid-json")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "parse service account credentials") {
		t.Fatalf("expected parse error, got: %v", err)
	}
}

func TestServiceAccountFileUnreadable(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+"/missing.json")

	_, err := serviceAccountJSON()
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got: %v", err)
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Ledger"}
	if _, err := c.Upsert(context.Background(), ports.Row{TransactionID: "t1"}); err == nil {
		t.Fatal("expected error without service")
	}
	if err := c.Remove(context.Background(), 2024, "t1"); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestIndexOfID(t *testing.T) {
	values := [][]any{
		{"id"},
		{},
		{" t1 "},
		{"t2", "2024-01-01"},
	}
	tests := []struct {
		id   string
		want int
	}{
		{"t1", 3},
		{"t2", 4},
		{"missing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := indexOfID(values, tt.id); got != tt.want {
				t.Errorf("indexOfID(%q) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}

func TestRowValuesLayout(t *testing.T) {
	row := ports.Row{
		TransactionID: "t1",
		UserID:        "u1",
		WalletID:      "w1",
		Kind:          "EXPENSE",
		Title:         "Rent",
		Amount:        "200.00",
		Date:          time.Date(2024, 1, 5, 23, 0, 0, 0, time.FixedZone("X", -3*3600)),
	}
	got := rowValues(row)
	want := []any{"t1", "2024-01-06", "w1", "EXPENSE", "Rent", "200.00", "u1"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("col %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Ledger", 2025, "2025 Ledger"},
		{"2024 Ledger", 2025, "2024 Ledger"},
		{"  Ledger  ", 2023, "2023 Ledger"},
		{"", 2025, ""},
		{"20x4 Ledger", 2025, "2025 20x4 Ledger"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}
