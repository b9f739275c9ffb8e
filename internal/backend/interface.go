package backend

import (
	"context"
	"time"

	"dompet/internal/ledger"
	"dompet/internal/ledger/cached"
	"dompet/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ledger and the resources that come with it
type BackendResult struct {
	Ledger ledger.Ledger
	// Events is set only for the sqlite backend.
	Events *storage.EventStore
	// Cache is the read-through wrapper around Ledger, nil when disabled.
	Cache *cached.Ledger
	// Ready reports whether the backing store is reachable.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates ledgers based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// CacheTTL > 0 wraps the ledger in a read-through cache
	CacheTTL  time.Duration
	CacheSize int
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
