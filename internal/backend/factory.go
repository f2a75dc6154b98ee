package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/cache"
	applog "moneta/internal/log"
	"moneta/internal/services"
	"moneta/internal/sheets"
	gsheet "moneta/internal/sheets/google"
	"moneta/internal/sheets/memory"
	"moneta/internal/storage"
)

const cacheSweepInterval = 10 * time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger.With(applog.FieldComponent, applog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional: without it mutations still commit, events are skipped.
	var publisher *amqp.Client
	var eventPublisher services.EventPublisher
	if config.AMQPURL != "" {
		publisher, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
			publisher = nil
		} else {
			eventPublisher = publisher
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	var reportCache cache.Cache[any]
	manager := cache.NewManager()
	if config.CacheSize > 0 {
		lru := cache.NewLRUCache[any](config.CacheSize, config.CacheTTL)
		manager.Register(lru)
		manager.StartCleanup(cacheSweepInterval)
		reportCache = lru
	}

	reports := services.NewReportService(repo, reportCache)
	ledger := services.NewLedger(repo, services.Options{
		Publisher:       eventPublisher,
		Invalidator:     reports,
		PropagateChain:  config.PropagateChain,
		DefaultCurrency: config.DefaultCurrency,
	})

	f.logger.Info("Initialized ledger backend",
		"backend", config.Type,
		"events_enabled", publisher != nil,
		"report_cache_size", config.CacheSize,
		"propagate_chain", config.PropagateChain)

	cleanup := func() error {
		manager.Stop()
		var errs []error
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close amqp: %w", err))
			}
		}
		if err := repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		return errors.Join(errs...)
	}

	return &BackendResult{
		Store:     repo,
		Ledger:    ledger,
		Reports:   reports,
		Publisher: publisher,
		Cleanup:   cleanup,
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (*storage.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL store")
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateMirror returns the Google Sheets mirror when a spreadsheet is
// configured and an in-memory mirror otherwise.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.TransactionMirror, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("Google Sheets disabled - mirroring to memory")
		return memory.New(), nil
	}
	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets mirror", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil
}
