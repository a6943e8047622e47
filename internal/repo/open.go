package repo

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// StorageDriver identifies a concrete Repository implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // process maps, lost on restart
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenConfig selects and locates the backing store.
type OpenConfig struct {
	Driver      StorageDriver
	DatabaseURL string
	Schema      string
	SQLitePath  string
}

// Open returns the Repository named by cfg.Driver. Relational stores are
// returned unmigrated; callers run RunMigrations and Seed.
func Open(ctx context.Context, cfg OpenConfig, logger *zap.Logger, opts ...Option) (Repository, error) {
	switch cfg.Driver {
	case StorageMemory, "":
		return NewMemory(opts...), nil
	case StorageSQLite:
		return NewSQLite(ctx, cfg.SQLitePath, logger, opts...)
	case StoragePostgres:
		return NewPostgres(ctx, cfg.DatabaseURL, cfg.Schema, logger, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
