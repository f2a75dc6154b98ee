package backend

import (
	"context"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/services"
	"moneta/internal/sheets"
	"moneta/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is the wired ledger: store, mutator and reader sharing one
// database, plus the optional event publisher.
type BackendResult struct {
	Store     *storage.Repository
	Ledger    *services.Ledger
	Reports   *services.ReportService
	Publisher *amqp.Client // nil when AMQP is disabled or unreachable
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateMirror(ctx context.Context, config Config) (sheets.TransactionMirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID string

	DefaultCurrency string
	PropagateChain  bool
	CacheSize       int
	CacheTTL        time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
