package backend

import (
	"context"
	"fmt"

	"dompet/internal/ledger/cached"
	ledgermem "dompet/internal/ledger/memory"
	"dompet/internal/ledger/postgres"
	ledgersqlite "dompet/internal/ledger/sqlite"
	applog "dompet/internal/log"
	"dompet/internal/storage"
)

const defaultCacheSize = 256

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case PostgresBackend:
		res, err = f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.CacheTTL > 0 {
		size := config.CacheSize
		if size < 1 {
			size = defaultCacheSize
		}
		res.Cache = cached.New(res.Ledger, size, config.CacheTTL)
		res.Ledger = res.Cache
		f.logger.Info("Ledger read cache enabled", "ttl", config.CacheTTL.String(), "size", size)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	db, err := storage.OpenSQLite(ctx, config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite database: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Ledger:  ledgersqlite.New(db, f.logger),
		Events:  storage.NewEventStore(db, f.logger),
		Ready:   db.PingContext,
		Cleanup: db.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	l, err := postgres.New(ctx, config.DatabaseURL, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres ledger: %w", err)
	}

	f.logger.Info("Initialized postgres backend")

	return &BackendResult{
		Ledger: l,
		Ready:  l.Ping,
		Cleanup: func() error {
			l.Close()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Ledger:  ledgermem.New(),
		Ready:   func(context.Context) error { return nil },
		Cleanup: func() error { return nil },
	}, nil
}
