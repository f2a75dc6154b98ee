package sheets

import (
	"context"
	"time"
)

// Row is one ledger transaction as it appears in the mirror.
type Row struct {
	TransactionID string
	UserID        string
	WalletID      string
	Kind          string
	Title         string
	Amount        string
	Date          time.Time
}

// Ports for outbound adapters.
type (
	// TransactionMirror keeps an external copy of the ledger, one row per
	// transaction, keyed by transaction id.
	TransactionMirror interface {
		// Upsert writes the row, replacing an existing row with the same id.
		Upsert(ctx context.Context, row Row) (rowRef string, err error)
		// Remove drops the row filed under year. Missing rows are not an error.
		Remove(ctx context.Context, year int, transactionID string) error
	}
)
