package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"moneta/internal/config"
	"moneta/internal/services"
	"moneta/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:          "postgres",
		DatabaseURL:          "postgres://localhost/moneta",
		DefaultCurrency:      "EUR",
		LedgerPropagateChain: true,
		ReportCacheSize:      7,
		ReportCacheTTL:       time.Minute,
	}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if bc.Type != PostgresBackend || bc.DatabaseURL != cfg.DatabaseURL || !bc.PropagateChain || bc.CacheSize != 7 {
		t.Fatalf("unexpected backend config %+v", bc)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "memory"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres", Config{Type: PostgresBackend, DatabaseURL: "postgres://x"}, false},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	res, err := f.CreateBackend(ctx, Config{
		Type:            SQLiteBackend,
		SQLiteDBPath:    filepath.Join(t.TempDir(), "moneta.db"),
		DefaultCurrency: "EUR",
		CacheSize:       10,
		CacheTTL:        time.Minute,
	})
	if err != nil {
		t.Fatalf("create backend: %v", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	}()
	if res.Publisher != nil {
		t.Fatal("publisher must be nil without AMQP URL")
	}

	w, err := res.Ledger.EnsurePrimaryWallet(ctx, "user-1")
	if err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	if w.Currency != "EUR" {
		t.Fatalf("currency = %q, want EUR", w.Currency)
	}
	if _, err := res.Ledger.CreateTransaction(ctx, services.CreateTransactionInput{
		UserID: "user-1", WalletID: w.ID, Type: "INCOME", Amount: "10",
	}); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	now := time.Now().UTC()
	sum, err := res.Reports.GetMonthlySummary(ctx, "user-1", now.Year(), int(now.Month()), "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalIncome.String() != "10" {
		t.Fatalf("income = %s, want 10", sum.TotalIncome)
	}
}

func TestCreateMirrorWithoutSpreadsheet(t *testing.T) {
	m, err := NewFactory(nil).CreateMirror(context.Background(), Config{})
	if err != nil {
		t.Fatalf("create mirror: %v", err)
	}
	if _, ok := m.(*memory.Store); !ok {
		t.Fatalf("mirror = %T, want *memory.Store", m)
	}
}
